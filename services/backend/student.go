package backendsvc

import (
	"context"
	"net/url"

	"github.com/sendgrid/rest"

	"github.com/trezcool/studentportal/core/student"
)

func (c *Client) Courses(ctx context.Context, token, studentID string) ([]student.Course, error) {
	var courses []student.Course
	err := c.do(ctx, call{
		method:     rest.Get,
		url:        c.apiURL + "courses/student/" + url.PathEscape(studentID),
		token:      token,
		defaultMsg: "Failed to load enrolled courses.",
	}, &courses)
	return courses, err
}

func (c *Client) FinalExams(ctx context.Context, token, studentID string) ([]student.Result, error) {
	var results []student.Result
	err := c.do(ctx, call{
		method:     rest.Get,
		url:        c.apiURL + "final-exams/student/" + url.PathEscape(studentID),
		token:      token,
		defaultMsg: "Failed to load results.",
	}, &results)
	return results, err
}

func (c *Client) StudentInfo(ctx context.Context, token, studentID string) (student.Profile, error) {
	var prof student.Profile
	err := c.do(ctx, call{
		method:     rest.Get,
		url:        c.apiURL + "student-info/" + url.PathEscape(studentID),
		token:      token,
		defaultMsg: "Failed to load student information. Please try again later.",
	}, &prof)
	return prof, err
}

// StudentPhoto returns the raw picture and its content type.
func (c *Client) StudentPhoto(ctx context.Context, token, studentID string) (student.Photo, error) {
	resp, err := c.send(ctx, call{
		method:     rest.Get,
		url:        c.photoURL + "student-photo/" + url.PathEscape(studentID),
		token:      token,
		defaultMsg: "Photo not found.",
	})
	if err != nil {
		return student.Photo{}, err
	}

	photo := student.Photo{Data: []byte(resp.Body)}
	if ct := resp.Headers["Content-Type"]; len(ct) > 0 {
		photo.ContentType = ct[0]
	}
	return photo, nil
}
