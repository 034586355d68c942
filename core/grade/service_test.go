package grade_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	testutil "github.com/nocheto/libretas/tests"
)

var ctx = context.Background()

func newGrade(student, course, section, bimester string, value *float64) grade.NewGrade {
	return grade.NewGrade{
		Key:       grade.Key{StudentID: student, CourseID: course, Section: section, Bimester: bimester},
		Month:     "marzo",
		Value:     value,
		TeacherID: "u-teacher",
	}
}

func TestService_Upsert(t *testing.T) {
	env := testutil.NewEnv(t)

	tests := []struct {
		name      string
		ng        grade.NewGrade
		wantValue *float64
		wantErr   bool
	}{
		{name: "lower bound", ng: newGrade("s-ana", "mat", "1A", "bim1", average.Float(0)), wantValue: average.Float(0)},
		{name: "upper bound", ng: newGrade("s-bruno", "mat", "1A", "bim1", average.Float(20)), wantValue: average.Float(20)},
		{name: "ungraded", ng: newGrade("s-carla", "mat", "1A", "bim1", nil)},
		{name: "below range", ng: newGrade("s-ana", "com", "1A", "bim1", average.Float(-0.5)), wantErr: true},
		{name: "above range", ng: newGrade("s-ana", "com", "1A", "bim1", average.Float(20.01)), wantErr: true},
		{name: "missing key", ng: newGrade("", "com", "1A", "bim1", average.Float(12)), wantErr: true},
		{name: "missing teacher", ng: grade.NewGrade{Key: grade.Key{StudentID: "s-ana", CourseID: "com", Section: "1A", Bimester: "bim1"}}, wantErr: true},
		{name: "student of another section", ng: newGrade("s-diego", "com", "1A", "bim1", average.Float(12)), wantErr: true},
		{name: "unknown course", ng: newGrade("s-ana", "lol", "1A", "bim1", average.Float(12)), wantErr: true},
		{name: "month of another bimester", ng: func() grade.NewGrade {
			ng := newGrade("s-ana", "com", "1A", "bim1", average.Float(12))
			ng.Month = "octubre"
			return ng
		}(), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := env.Grade.Upsert(ctx, tt.ng)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, entry.Value)

			got, err := env.Grade.Get(ctx, tt.ng.Key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, got.Value)
		})
	}

	// rejected writes are never stored
	entries, err := env.Grade.Query(ctx, grade.QueryFilter{Section: "1A", CourseID: "com"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_Upsert_overwrites(t *testing.T) {
	env := testutil.NewEnv(t)
	ng := newGrade("s-ana", "mat", "1A", "bim1", average.Float(15))

	first, err := env.Grade.Upsert(ctx, ng)
	require.NoError(t, err)
	second, err := env.Grade.Upsert(ctx, ng)
	require.NoError(t, err)
	assert.Equal(t, first.Value, second.Value)

	ng.Value = average.Float(11)
	ng.Month = "abril"
	_, err = env.Grade.Upsert(ctx, ng)
	require.NoError(t, err)

	entries, err := env.Grade.Query(ctx, grade.QueryFilter{StudentID: "s-ana"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, average.Float(11), entries[0].Value)
	assert.Equal(t, "abril", entries[0].Month)
}

func TestService_Upsert_keepsMonth(t *testing.T) {
	env := testutil.NewEnv(t)
	ng := newGrade("s-ana", "mat", "1A", "bim1", average.Float(15))
	ng.Month = "abril"
	_, err := env.Grade.Upsert(ctx, ng)
	require.NoError(t, err)

	ng.Month = ""
	ng.Value = average.Float(16)
	entry, err := env.Grade.Upsert(ctx, ng)
	require.NoError(t, err)
	assert.Equal(t, "abril", entry.Month)

	got, err := env.Grade.Get(ctx, ng.Key)
	require.NoError(t, err)
	assert.Equal(t, "abril", got.Month)
	assert.Equal(t, average.Float(16), got.Value)
}

func TestService_Upsert_closedPeriod(t *testing.T) {
	env := testutil.NewEnv(t)
	env.MustGrade(t, "s-ana", "mat", "1A", "bim1", average.Float(15), average.Float(17))
	env.MustClose(t, "1A", "bim1")

	before, err := env.Grade.Query(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	beforeExams, err := env.Grade.QueryExams(ctx, grade.QueryFilter{})
	require.NoError(t, err)

	_, err = env.Grade.Upsert(ctx, newGrade("s-ana", "mat", "1A", "bim1", average.Float(18)))
	assert.True(t, errors.Is(err, consolidation.ErrPeriodClosed))

	_, err = env.Grade.UpsertExam(ctx, grade.NewExam{
		Key:       grade.Key{StudentID: "s-ana", CourseID: "mat", Section: "1A", Bimester: "bim1"},
		ExamGrade: average.Float(5),
		TeacherID: "u-teacher",
	})
	assert.True(t, errors.Is(err, consolidation.ErrPeriodClosed))

	// all or nothing: the open period of the batch is not written either
	_, err = env.Grade.UpsertMany(ctx, []grade.NewGrade{
		newGrade("s-diego", "mat", "1B", "bim1", average.Float(12)),
		newGrade("s-bruno", "mat", "1A", "bim1", average.Float(12)),
	})
	assert.True(t, errors.Is(err, consolidation.ErrPeriodClosed))

	after, err := env.Grade.Query(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	afterExams, err := env.Grade.QueryExams(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, beforeExams, afterExams)

	// other periods stay writable
	_, err = env.Grade.Upsert(ctx, newGrade("s-diego", "mat", "1B", "bim1", average.Float(12)))
	assert.NoError(t, err)

	// reopening unlocks the period
	_, err = env.Consolidation.Reopen(ctx, "1A", "bim1")
	require.NoError(t, err)
	_, err = env.Grade.Upsert(ctx, newGrade("s-ana", "mat", "1A", "bim1", average.Float(18)))
	assert.NoError(t, err)
}

func TestService_UpsertMany_validation(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := env.Grade.UpsertMany(ctx, []grade.NewGrade{
		newGrade("s-ana", "mat", "1A", "bim1", average.Float(12)),
		newGrade("s-bruno", "mat", "1A", "bim1", average.Float(21)),
	})
	assert.Error(t, err)

	entries, err := env.Grade.Query(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	saved, err := env.Grade.UpsertMany(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, saved)
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	env.MustGrade(t, "s-ana", "mat", "1A", "bim1", average.Float(15), nil)
	env.MustGrade(t, "s-ana", "com", "1A", "bim1", average.Float(14), nil)
	env.MustGrade(t, "s-ana", "mat", "1A", "bim2", average.Float(13), nil)
	env.MustGrade(t, "s-diego", "mat", "1B", "bim1", average.Float(12), nil)

	tests := []struct {
		name   string
		filter grade.QueryFilter
		want   int
	}{
		{name: "no filter", filter: grade.QueryFilter{}, want: 4},
		{name: "section", filter: grade.QueryFilter{Section: "1A"}, want: 3},
		{name: "section and bimester", filter: grade.QueryFilter{Section: "1A", Bimester: "bim1"}, want: 2},
		{name: "course", filter: grade.QueryFilter{CourseID: "mat"}, want: 3},
		{name: "all fields", filter: grade.QueryFilter{Section: "1A", Bimester: "bim1", CourseID: "mat", StudentID: "s-ana"}, want: 1},
		{name: "trimmed", filter: grade.QueryFilter{Section: " 1B "}, want: 1},
		{name: "no match", filter: grade.QueryFilter{Section: "1B", CourseID: "com"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := env.Grade.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}

	_, err := env.Grade.Get(ctx, grade.Key{StudentID: "s-bruno", CourseID: "mat", Section: "1A", Bimester: "bim1"})
	assert.Equal(t, grade.ErrNotFound, err)
}

func TestService_BimesterFinal(t *testing.T) {
	env := testutil.NewEnv(t)
	env.MustGrade(t, "s-ana", "mat", "1A", "bim1", average.Float(15.5), average.Float(17.2))
	env.MustGrade(t, "s-bruno", "mat", "1A", "bim1", average.Float(14), nil)
	env.MustGrade(t, "s-carla", "mat", "1A", "bim1", average.Float(0), average.Float(0))

	key := func(student string) grade.Key {
		return grade.Key{StudentID: student, CourseID: "mat", Section: "1A", Bimester: "bim1"}
	}

	final, err := env.Grade.BimesterFinal(ctx, key("s-ana"))
	require.NoError(t, err)
	assert.Equal(t, average.Float(16.35), final)

	final, err = env.Grade.BimesterFinal(ctx, key("s-bruno"))
	require.NoError(t, err)
	assert.Nil(t, final)

	final, err = env.Grade.BimesterFinal(ctx, key("s-carla"))
	require.NoError(t, err)
	assert.Equal(t, average.Float(0), final)

	finals, err := env.Grade.SectionFinals(ctx, "1A", "bim1", "mat")
	require.NoError(t, err)
	require.Len(t, finals, 3)
	assert.Equal(t, "s-ana", finals[0].StudentID)
	assert.Equal(t, average.Float(16.35), finals[0].Final)
	assert.Equal(t, average.Float(14), finals[1].Monthly)
	assert.Nil(t, finals[1].Exam)
	assert.Nil(t, finals[1].Final)
	assert.Equal(t, average.Float(0), finals[2].Final)
}

func TestService_AnnualAverage(t *testing.T) {
	env := testutil.NewEnv(t)
	// finals: 16.35, 17, 14, 15.2
	env.MustGrade(t, "s-ana", "mat", "1A", "bim1", average.Float(15.5), average.Float(17.2))
	env.MustGrade(t, "s-ana", "mat", "1A", "bim2", average.Float(17), average.Float(17))
	env.MustGrade(t, "s-ana", "mat", "1A", "bim4", average.Float(15.2), average.Float(15.2))

	annual, finals, err := env.Grade.AnnualAverage(ctx, "s-ana", "mat", "1A")
	require.NoError(t, err)
	assert.Nil(t, annual)
	assert.Equal(t, []*float64{average.Float(16.35), average.Float(17), nil, average.Float(15.2)}, finals)

	env.MustGrade(t, "s-ana", "mat", "1A", "bim3", average.Float(14), average.Float(14))
	annual, _, err = env.Grade.AnnualAverage(ctx, "s-ana", "mat", "1A")
	require.NoError(t, err)
	assert.Equal(t, average.Float(15.64), annual)
}

func TestService_UpsertExam(t *testing.T) {
	env := testutil.NewEnv(t)
	key := grade.Key{StudentID: "s-ana", CourseID: "mat", Section: "1A", Bimester: "bim1"}

	_, err := env.Grade.UpsertExam(ctx, grade.NewExam{Key: key, ExamGrade: average.Float(25), TeacherID: "u-teacher"})
	assert.Error(t, err)

	exam, err := env.Grade.UpsertExam(ctx, grade.NewExam{Key: key, ExamGrade: average.Float(0), TeacherID: "u-teacher"})
	require.NoError(t, err)
	assert.Equal(t, average.Float(0), exam.ExamGrade)

	// the exam channel does not create a monthly entry
	_, err = env.Grade.Get(ctx, key)
	assert.Equal(t, grade.ErrNotFound, err)

	got, err := env.Grade.GetExam(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, average.Float(0), got.ExamGrade)
}
