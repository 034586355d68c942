package average

import "sort"

// Letter is an achievement level of the UGEL scale.
type Letter string

const (
	LetterAD Letter = "AD" // logro destacado: 18 - 20
	LetterA  Letter = "A"  // logro esperado: 14 - 17
	LetterB  Letter = "B"  // en proceso: 11 - 13
	LetterC  Letter = "C"  // en inicio: 0 - 10
)

var letterLabels = map[Letter]string{
	LetterAD: "Logro Destacado",
	LetterA:  "Logro Esperado",
	LetterB:  "En Proceso",
	LetterC:  "En Inicio",
}

func (l Letter) Label() string { return letterLabels[l] }

// LetterOf converts a numeric grade to its letter, after report-card rounding.
func LetterOf(v float64) Letter {
	rounded := ReportCardGrade(v)
	switch {
	case rounded >= 18:
		return LetterAD
	case rounded >= 14:
		return LetterA
	case rounded >= 11:
		return LetterB
	}
	return LetterC
}

// Rank returns the position of every key with a score: 1 + the number of strictly greater scores.
// Equal scores share a position. Keys with a nil score are left out.
func Rank(scores map[string]*float64) map[string]int {
	values := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s != nil {
			values = append(values, *s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	positions := make(map[string]int, len(values))
	for key, s := range scores {
		if s == nil {
			continue
		}
		// number of values strictly greater than *s
		greater := sort.Search(len(values), func(i int) bool { return values[i] <= *s })
		positions[key] = greater + 1
	}
	return positions
}
