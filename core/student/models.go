package student

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Text is a display value decoded from any JSON scalar: the backend is not consistent
// about sending numbers, strings or null for the same field.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Int parses t as an integer; ok is false if t is not an integral number ("3.0" is 3, "1.9" is not).
func (t Text) Int() (int, bool) {
	s := strings.TrimSpace(string(t))
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int(f), true
	}
	return 0, false
}

// Float parses t as a float; 0 if t is not numeric.
func (t Text) Float() float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	return f
}

type (
	// Course is one enrolled course registration.
	Course struct {
		ModuleCode  Text `json:"module_code"`
		ModName     Text `json:"mod_name"`
		CreditHour  Text `json:"mod_credit_hour"`
		Group       Text `json:"mod_group"`
		FacultyName Text `json:"faculty_name"`
		DptCode     Text `json:"dpt_code"`
		RegStatus   Text `json:"reg_status"`
		Term        Text `json:"tra_term"`
		Year        Text `json:"tra_year"`
	}

	// Result is one final exam result.
	Result struct {
		ModuleCode     Text `json:"module_code"`
		ModName        Text `json:"mod_name"`
		CreditHour     Text `json:"mod_credit_hour"`
		LetterGrade    Text `json:"letter_grade"`
		GradePoint     Text `json:"grade_point"`
		RealGradePoint Text `json:"real_gradepoint"`
		ExamTerm       Text `json:"exm_exam_term"`
		ExamYear       Text `json:"exm_exam_year"`
	}

	// Profile is the student information record.
	Profile struct {
		Title             Text `json:"per_title"`
		Name              Text `json:"per_name"`
		ProgramOfficial   Text `json:"pro_officialName"`
		ProgramShort      Text `json:"pro_shortName"`
		ProgramName       Text `json:"pro_name"`
		StudentID         Text `json:"student_id"`
		Batch             Text `json:"batchName"`
		Section           Text `json:"sectionName"`
		AcademicTerm      Text `json:"stu_academicTerm"`
		AcademicYear      Text `json:"stu_academicYear"`
		AdmissionDate     Text `json:"adm_date"`
		DateOfBirth       Text `json:"per_dateOfBirth"`
		Gender            Text `json:"per_gender"`
		BloodGroup        Text `json:"per_bloodGroup"`
		Nationality       Text `json:"per_nationality"`
		Mobile            Text `json:"per_mobile"`
		GuardiansMobile   Text `json:"stu_guardiansMobile"`
		FathersName       Text `json:"per_fathersName"`
		MothersName       Text `json:"per_mothersName"`
		PresentAddress    Text `json:"per_presentAddress"`
		PermanentAddress  Text `json:"per_permanentAddress"`
		Department        Text `json:"dpt_officalNameforCertificate"`
	}

	// Photo is a student picture as served by the backend.
	Photo struct {
		ContentType string
		Data        []byte
	}

	// Dashboard is the summary shown on the home page, derived from the enrolled courses.
	Dashboard struct {
		EnrolledCourses   int
		Terms             int
		TotalCredits      float64
		LatestTerm        string
		LatestTermCourses int
	}
)

// TermKey is the grouping key of a course: "<term label> <year>".
func (c Course) TermKey() string { return TermKey(c.Term, c.Year) }

// TermKey is the grouping key of a result: "<term label> <year>".
func (r Result) TermKey() string { return TermKey(r.ExamTerm, r.ExamYear) }

// FullName prefixes the name with the title, if any.
func (p Profile) FullName() string {
	return strings.TrimSpace(string(p.Title) + " " + string(p.Name))
}
