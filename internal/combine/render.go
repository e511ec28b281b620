package combine

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
	"github.com/unidoc/unioffice/schema/soo/wml"

	"github.com/sanjeevkumarraob/drive-search-service/internal/unidoc"
)

// headingStyle is the built-in style used for file titles
const headingStyle = "Heading2"

type renderer struct {
	name   string
	render func(w io.Writer, d *Document) error
}

// renderers lists the .docx writers to try. unioffice refuses to save
// without a license, so it only leads when one is set.
func renderers() []renderer {
	if unidoc.Licensed() {
		return []renderer{
			{"unioffice", renderUnioffice},
			{"wordml", renderWordML},
		}
	}
	return []renderer{{"wordml", renderWordML}}
}

// Render writes the document as .docx to w. Nothing is written to w unless
// a renderer succeeds.
func Render(w io.Writer, d *Document) error {
	var errs []error
	for _, r := range renderers() {
		var buf bytes.Buffer
		if err := r.render(&buf, d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write combined document: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to save combined document: %w", errors.Join(errs...))
}

// RenderBytes renders the document into memory
func RenderBytes(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderUnioffice(w io.Writer, d *Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unioffice panic: %v", r)
		}
	}()

	doc := document.New()

	for i, line := range d.Banner() {
		para := doc.AddParagraph()
		run := para.AddRun()
		run.Properties().SetBold(true)
		if i == 0 {
			run.Properties().SetHighlight(wml.ST_HighlightColorYellow)
		}
		run.AddText(line)
	}

	sep := doc.AddParagraph()
	sep.Properties().Spacing().SetAfter(12 * measurement.Point)
	sep.AddRun().AddText(Separator)

	for _, section := range d.Sections {
		heading := doc.AddParagraph()
		heading.SetStyle(headingStyle)
		heading.AddRun().AddText(section.Title)

		for _, line := range section.Lines {
			doc.AddParagraph().AddRun().AddText(paragraphLine(line))
		}

		doc.AddParagraph()
	}

	return doc.Save(w)
}

// paragraphLine keeps blank lines as a visible paragraph
func paragraphLine(line string) string {
	if line == "" {
		return " "
	}
	return line
}
