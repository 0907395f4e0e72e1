package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/session"
)

var ErrNoStudent = errors.New("session has no student id")

// Backend is the student data part of the backend API.
type Backend interface {
	Courses(ctx context.Context, token, studentID string) ([]Course, error)
	FinalExams(ctx context.Context, token, studentID string) ([]Result, error)
	StudentInfo(ctx context.Context, token, studentID string) (Profile, error)
	StudentPhoto(ctx context.Context, token, studentID string) (Photo, error)
}

// Service fetches one backend resource per page for the signed in student.
type Service struct {
	backend Backend
}

func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

func checkSession(sess session.Session) error {
	if sess.StudentID == "" {
		return ErrNoStudent
	}
	return nil
}

// Courses returns the enrolled courses grouped by term.
func (svc *Service) Courses(ctx context.Context, sess session.Session) ([]Group[Course], error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	courses, err := svc.backend.Courses(ctx, sess.Token, sess.StudentID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching courses")
	}
	return GroupBy(courses, Course.TermKey), nil
}

// Results returns the final exam results grouped by exam term.
func (svc *Service) Results(ctx context.Context, sess session.Session) ([]Group[Result], error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	results, err := svc.backend.FinalExams(ctx, sess.Token, sess.StudentID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching results")
	}
	return GroupBy(results, Result.TermKey), nil
}

func (svc *Service) Profile(ctx context.Context, sess session.Session) (Profile, error) {
	if err := checkSession(sess); err != nil {
		return Profile{}, err
	}
	prof, err := svc.backend.StudentInfo(ctx, sess.Token, sess.StudentID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "fetching student info")
	}
	return prof, nil
}

func (svc *Service) Photo(ctx context.Context, sess session.Session) (Photo, error) {
	if err := checkSession(sess); err != nil {
		return Photo{}, err
	}
	photo, err := svc.backend.StudentPhoto(ctx, sess.Token, sess.StudentID)
	if err != nil {
		return Photo{}, errors.Wrap(err, "fetching student photo")
	}
	return photo, nil
}

// Dashboard summarizes the enrolled courses.
func (svc *Service) Dashboard(ctx context.Context, sess session.Session) (Dashboard, error) {
	groups, err := svc.Courses(ctx, sess)
	if err != nil {
		return Dashboard{}, err
	}
	return Summarize(groups), nil
}

// Summarize computes the Dashboard of grouped courses. The latest term is the one with
// the highest year, then the highest term number.
func Summarize(groups []Group[Course]) Dashboard {
	dash := Dashboard{Terms: len(groups)}
	latestYear, latestTerm := -1, -1
	for _, g := range groups {
		dash.EnrolledCourses += len(g.Rows)
		for _, c := range g.Rows {
			dash.TotalCredits += c.CreditHour.Float()
		}

		first := g.Rows[0]
		year, _ := first.Year.Int()
		term, _ := first.Term.Int()
		if year > latestYear || (year == latestYear && term > latestTerm) {
			latestYear, latestTerm = year, term
			dash.LatestTerm = g.Key
			dash.LatestTermCourses = len(g.Rows)
		}
	}
	return dash
}
