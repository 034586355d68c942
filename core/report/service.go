// Package report assembles the read projections of dashboards and report cards.
// Everything is recomputed from the current grade and consolidation state on each call.
package report

import (
	"context"
	"sort"

	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/school"
)

type (
	GradeReader interface {
		Query(ctx context.Context, filter grade.QueryFilter) ([]grade.Entry, error)
		FinalsTable(ctx context.Context, filter grade.QueryFilter) (map[grade.Key]grade.Final, error)
	}

	PeriodStates interface {
		State(ctx context.Context, section, bimester string) (consolidation.Consolidation, error)
	}

	Service struct {
		grades GradeReader
		states PeriodStates
		dir    school.Directory
	}
)

func NewService(grades GradeReader, states PeriodStates, dir school.Directory) *Service {
	return &Service{grades: grades, states: states, dir: dir}
}

func (svc *Service) coverage(ctx context.Context, section, bimester string, courseIDs []string) (Coverage, error) {
	students := svc.dir.StudentsBySection(section)
	inSection := make(map[string]bool, len(students))
	for _, s := range students {
		inSection[s.ID] = true
	}
	counted := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		counted[id] = true
	}

	entries, err := svc.grades.Query(ctx, grade.QueryFilter{Section: section, Bimester: bimester})
	if err != nil {
		return Coverage{}, err
	}
	var graded int
	for _, e := range entries {
		if e.Value != nil && inSection[e.StudentID] && counted[e.CourseID] {
			graded++
		}
	}

	state, err := svc.states.State(ctx, section, bimester)
	if err != nil {
		return Coverage{}, err
	}

	expected := len(students) * len(counted)
	return Coverage{
		Section:  section,
		Bimester: bimester,
		Students: len(students),
		Courses:  len(counted),
		Expected: expected,
		Graded:   graded,
		Percent:  average.Coverage(graded, expected),
		IsClosed: state.IsClosed,
	}, nil
}

func (svc *Service) courseIDs() []string {
	courses := svc.dir.Courses()
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

// SectionCoverage counts non-null grades over students x all courses.
func (svc *Service) SectionCoverage(ctx context.Context, section, bimester string) (Coverage, error) {
	if _, err := svc.dir.Bimester(bimester); err != nil {
		return Coverage{}, err
	}
	return svc.coverage(ctx, section, bimester, svc.courseIDs())
}

// TeacherCoverage counts non-null grades over students x assigned courses of each assigned section.
// A principal covers the whole school; a tutor without course assignments covers every course of its sections.
func (svc *Service) TeacherCoverage(ctx context.Context, usr school.User, bimester string) (TeacherCoverage, error) {
	if _, err := svc.dir.Bimester(bimester); err != nil {
		return TeacherCoverage{}, err
	}

	var sections, courses []string
	switch role := usr.Role.(type) {
	case school.Principal:
		sections, courses = svc.dir.Sections(), svc.courseIDs()
	case school.Tutor:
		sections, courses = role.Sections, role.Courses
		if len(courses) == 0 {
			courses = svc.courseIDs()
		}
	case school.SubjectTeacher:
		sections, courses = role.Sections, role.Courses
	}

	tc := TeacherCoverage{TeacherID: usr.ID, Bimester: bimester, Sections: make([]Coverage, 0, len(sections))}
	percents := make([]int, 0, len(sections))
	for _, section := range sections {
		cov, err := svc.coverage(ctx, section, bimester, courses)
		if err != nil {
			return TeacherCoverage{}, err
		}
		tc.Sections = append(tc.Sections, cov)
		percents = append(percents, cov.Percent)
	}
	tc.Overall = average.MeanPercent(percents)
	return tc, nil
}

// SectionOverview is the principal dashboard: coverage and lock state of every section.
func (svc *Service) SectionOverview(ctx context.Context, bimester string) (Overview, error) {
	if _, err := svc.dir.Bimester(bimester); err != nil {
		return Overview{}, err
	}

	sections := svc.dir.Sections()
	courses := svc.courseIDs()
	ov := Overview{Bimester: bimester, Sections: make([]Coverage, 0, len(sections))}
	percents := make([]int, 0, len(sections))
	for _, section := range sections {
		cov, err := svc.coverage(ctx, section, bimester, courses)
		if err != nil {
			return Overview{}, err
		}
		ov.Sections = append(ov.Sections, cov)
		percents = append(percents, cov.Percent)
	}
	ov.Overall = average.MeanPercent(percents)
	return ov, nil
}

// ReportCard collects the bimester finals, annual averages and subject group averages of a student.
func (svc *Service) ReportCard(ctx context.Context, studentID string) (ReportCard, error) {
	stud, err := svc.dir.Student(studentID)
	if err != nil {
		return ReportCard{}, err
	}
	bimesters := svc.dir.Bimesters()
	courses := svc.dir.Courses()

	rc := ReportCard{
		Student:   stud,
		Bimesters: bimesters,
		Closed:    make([]bool, 0, len(bimesters)),
		Courses:   make([]CourseLine, 0, len(courses)),
	}
	for _, b := range bimesters {
		state, err := svc.states.State(ctx, stud.Section, b.ID)
		if err != nil {
			return ReportCard{}, err
		}
		rc.Closed = append(rc.Closed, state.IsClosed)
	}

	table, err := svc.grades.FinalsTable(ctx, grade.QueryFilter{Section: stud.Section, StudentID: stud.ID})
	if err != nil {
		return ReportCard{}, err
	}

	var groups []string
	groupFinals := make(map[string][][]*float64) // group -> bimester index -> course finals
	for _, c := range courses {
		line := CourseLine{Course: c, Finals: make([]*float64, 0, len(bimesters))}
		for _, b := range bimesters {
			key := grade.Key{StudentID: stud.ID, CourseID: c.ID, Section: stud.Section, Bimester: b.ID}
			line.Finals = append(line.Finals, table[key].Final)
		}
		if line.Annual = average.AnnualAverage(line.Finals); line.Annual != nil {
			g := average.ReportCardGrade(*line.Annual)
			line.Grade = &g
			line.Letter = average.LetterOf(*line.Annual)
		}
		rc.Courses = append(rc.Courses, line)

		if c.Group == "" {
			continue
		}
		if _, ok := groupFinals[c.Group]; !ok {
			groups = append(groups, c.Group)
			groupFinals[c.Group] = make([][]*float64, len(bimesters))
		}
		for i, f := range line.Finals {
			groupFinals[c.Group][i] = append(groupFinals[c.Group][i], f)
		}
	}

	rc.Groups = make([]GroupLine, 0, len(groups))
	for _, g := range groups {
		line := GroupLine{Group: g, Averages: make([]*float64, 0, len(bimesters))}
		for _, finals := range groupFinals[g] {
			line.Averages = append(line.Averages, average.GroupAverage(finals))
		}
		rc.Groups = append(rc.Groups, line)
	}
	return rc, nil
}

// Ranking orders the students of a section by their bimester final of a course.
// Students without a final come last with position 0.
func (svc *Service) Ranking(ctx context.Context, section, courseID, bimester string) ([]RankLine, error) {
	if _, err := svc.dir.Course(courseID); err != nil {
		return nil, err
	}
	if _, err := svc.dir.Bimester(bimester); err != nil {
		return nil, err
	}

	table, err := svc.grades.FinalsTable(ctx, grade.QueryFilter{Section: section, Bimester: bimester, CourseID: courseID})
	if err != nil {
		return nil, err
	}

	students := svc.dir.StudentsBySection(section)
	scores := make(map[string]*float64, len(students))
	for _, s := range students {
		scores[s.ID] = table[grade.Key{StudentID: s.ID, CourseID: courseID, Section: section, Bimester: bimester}].Final
	}
	positions := average.Rank(scores)

	lines := make([]RankLine, 0, len(students))
	for _, s := range students {
		lines = append(lines, RankLine{Student: s, Final: scores[s.ID], Position: positions[s.ID]})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		pi, pj := lines[i].Position, lines[j].Position
		if pi == 0 || pj == 0 {
			return pj == 0 && pi != 0
		}
		return pi < pj
	})
	return lines, nil
}
