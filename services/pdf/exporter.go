package pdfsvc

import (
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/student"
)

const (
	margin     = 14.0
	titleSize  = 18.0
	headSize   = 14.0
	bodySize   = 9.0
	rowHeight  = 7.0
	groupSpace = 10.0
)

// header row colors
var (
	headFill = [3]int{25, 70, 150}
	headText = [3]int{255, 255, 255}
)

// Column is one table column; Weight is its share of the page width.
type Column[T any] struct {
	Header string
	Weight float64
	Value  func(T) string
}

var (
	CourseColumns = []Column[student.Course]{
		{Header: "Module Code", Weight: 1.2, Value: func(c student.Course) string { return c.ModuleCode.String() }},
		{Header: "Module Name", Weight: 3, Value: func(c student.Course) string { return c.ModName.String() }},
		{Header: "Credit", Weight: .8, Value: func(c student.Course) string { return c.CreditHour.String() }},
		{Header: "Group", Weight: .8, Value: func(c student.Course) string { return c.Group.String() }},
		{Header: "Faculty", Weight: 2, Value: func(c student.Course) string { return c.FacultyName.String() }},
		{Header: "Department", Weight: 1.1, Value: func(c student.Course) string { return c.DptCode.String() }},
		{Header: "Reg. Status", Weight: 1.1, Value: func(c student.Course) string { return c.RegStatus.String() }},
	}

	ResultColumns = []Column[student.Result]{
		{Header: "Module Code", Weight: 1.2, Value: func(r student.Result) string { return r.ModuleCode.String() }},
		{Header: "Module Name", Weight: 3, Value: func(r student.Result) string { return r.ModName.String() }},
		{Header: "Credit", Weight: .8, Value: func(r student.Result) string { return r.CreditHour.String() }},
		{Header: "Grade", Weight: .8, Value: func(r student.Result) string { return r.LetterGrade.String() }},
		{Header: "Grade Point", Weight: 1, Value: func(r student.Result) string { return r.GradePoint.String() }},
		{Header: "Real Grade Point", Weight: 1.3, Value: func(r student.Result) string { return r.RealGradePoint.String() }},
	}
)

func CoursesFilename(studentID string) string { return "Enrolled_Courses_" + studentID + ".pdf" }
func ResultsFilename(studentID string) string { return "Academic_Results_" + studentID + ".pdf" }

// Exporter renders grouped tables as PDF documents, one table region per group.
type Exporter struct {
	appName string
	nowFunc func() time.Time
}

func NewExporter(conf *core.Config) *Exporter {
	return &Exporter{appName: conf.AppName, nowFunc: time.Now}
}

func (e *Exporter) Courses(w io.Writer, studentID string, groups []student.Group[student.Course]) error {
	return render(w, e.newDoc("Student Course Enrollment Report", studentID), CourseColumns, groups)
}

func (e *Exporter) Results(w io.Writer, studentID string, groups []student.Group[student.Result]) error {
	return render(w, e.newDoc("Student Academic Performance Report", studentID), ResultColumns, groups)
}

type doc struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	title string
}

func (e *Exporter) newDoc(title, studentID string) doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title+" - "+studentID, true)
	pdf.SetCreator(e.appName, true)
	pdf.SetCreationDate(e.nowFunc())
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, studentID, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Page "+strconv.Itoa(pdf.PageNo())+"/{nb}", "", 0, "R", false, 0, "")
	})
	return doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), title: title}
}

func render[T any](w io.Writer, d doc, cols []Column[T], groups []student.Group[T]) error {
	pdf := d.pdf
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.CellFormat(0, 10, d.tr(d.title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pageW, pageH := pdf.GetPageSize()
	widths := columnWidths(cols, pageW-2*margin)

	if len(groups) == 0 {
		pdf.SetFont("Helvetica", "", bodySize)
		pdf.CellFormat(0, rowHeight, "No records found.", "", 1, "L", false, 0, "")
	}

	for _, g := range groups {
		// keep the group heading with its header row and first line
		if pdf.GetY()+8+2*rowHeight > pageH-margin {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", headSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, d.tr(g.Key), "", 1, "L", false, 0, "")
		drawHeader(d, cols, widths)

		pdf.SetFont("Helvetica", "", bodySize)
		for _, row := range g.Rows {
			if pdf.GetY()+rowHeight > pageH-margin {
				pdf.AddPage()
				drawHeader(d, cols, widths)
				pdf.SetFont("Helvetica", "", bodySize)
			}
			for i, col := range cols {
				pdf.CellFormat(widths[i], rowHeight, fit(d, col.Value(row), widths[i]), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(groupSpace)
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

func drawHeader[T any](d doc, cols []Column[T], widths []float64) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", bodySize)
	pdf.SetFillColor(headFill[0], headFill[1], headFill[2])
	pdf.SetTextColor(headText[0], headText[1], headText[2])
	for i, col := range cols {
		pdf.CellFormat(widths[i], rowHeight, d.tr(col.Header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func columnWidths[T any](cols []Column[T], total float64) []float64 {
	var sum float64
	for _, col := range cols {
		sum += col.Weight
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		widths[i] = total * col.Weight / sum
	}
	return widths
}

// fit truncates s with an ellipsis so that it fits in a cell of width w.
func fit(d doc, s string, w float64) string {
	s = d.tr(s)
	max := w - 2 // cell padding
	if d.pdf.GetStringWidth(s) <= max {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > max {
		s = s[:len(s)-1]
	}
	return s + "..."
}
