package document

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sanjeevkumarraob/drive-search-service/internal/document/extractor"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/heuristics"
	"github.com/sanjeevkumarraob/drive-search-service/internal/document/ocr"
	"github.com/sanjeevkumarraob/drive-search-service/internal/unidoc"
)

// Error definitions
var (
	ErrFileTooLarge        = errors.New("file size exceeds maximum allowed size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoText              = errors.New("no readable text found")
)

// Defaults for Options
const (
	DefaultMaxFileSize    = 50 * 1024 * 1024
	DefaultMinLegacyChars = 50
)

// Options tunes the processor
type Options struct {
	// MaxFileSize rejects larger inputs before any parsing
	MaxFileSize int64
	// MinLegacyChars is the shortest .doc extraction accepted as real content
	MinLegacyChars int
	// Normalize controls line cleanup and truncation of extracted text
	Normalize heuristics.NormalizeOptions
}

// DefaultOptions returns the processor defaults
func DefaultOptions() Options {
	return Options{
		MaxFileSize:    DefaultMaxFileSize,
		MinLegacyChars: DefaultMinLegacyChars,
		Normalize:      heuristics.DefaultNormalizeOptions(),
	}
}

// Input is one file handed to the processor
type Input struct {
	Info FileInfo
	Data []byte
	// DataMIME overrides Info.MimeType for parsing, e.g. a Google Doc exported as .docx
	DataMIME string
}

// Result is the outcome of extracting one file. It is always produced, even
// when extraction failed, in which case Content holds a fallback banner.
type Result struct {
	FileName string   `json:"fileName"`
	Content  string   `json:"extractedText"`
	Fallback bool     `json:"fallback"`
	Warnings []string `json:"warnings,omitempty"`
}

// strategy is one way of getting text out of a buffer
type strategy struct {
	name string
	run  func(ctx context.Context, data []byte) (string, error)
}

// Processor handles document processing
type Processor struct {
	pdfExtractor    *extractor.PDFExtractor
	wordExtractor   *extractor.WordExtractor
	plainExtractor  *extractor.PlainExtractor
	odtExtractor    *extractor.ODTExtractor
	legacyExtractor *extractor.LegacyWordExtractor
	converter       *extractor.Converter
	ocrProcessor    *ocr.Processor
	logger          *log.Logger
	opts            Options
}

// NewProcessor creates a new document processor. A nil converter skips the
// .doc conversion step; a nil OCR processor disables image extraction.
func NewProcessor(logger *log.Logger, converter *extractor.Converter, ocrProcessor *ocr.Processor, opts Options) *Processor {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MinLegacyChars <= 0 {
		opts.MinLegacyChars = DefaultMinLegacyChars
	}
	return &Processor{
		pdfExtractor:    extractor.NewPDFExtractor(),
		wordExtractor:   extractor.NewWordExtractor(),
		plainExtractor:  extractor.NewPlainExtractor(),
		odtExtractor:    extractor.NewODTExtractor(),
		legacyExtractor: extractor.NewLegacyWordExtractor(),
		converter:       converter,
		ocrProcessor:    ocrProcessor,
		logger:          logger,
		opts:            opts,
	}
}

// ExtractText extracts and normalizes the text of a buffer of the declared
// MIME type. Unlike ExtractFile it reports failures as errors.
func (p *Processor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return p.extract(ctx, heuristics.Classify(data, mimeType), data)
}

// ExtractFile extracts one file and never fails: problems become a banner
// describing the file and what went wrong.
func (p *Processor) ExtractFile(ctx context.Context, in Input) Result {
	info := in.Info
	mimeType := in.DataMIME
	if mimeType == "" {
		mimeType = info.MimeType
	}
	format := heuristics.Classify(in.Data, mimeType)

	switch format {
	case heuristics.FormatUnsupported, heuristics.FormatGoogleDoc:
		return p.fallback(info, msgUnsupported, nil)

	case heuristics.FormatLegacyDoc:
		if heuristics.Sniff(in.Data) != heuristics.FormatLegacyDoc {
			return p.fallback(info, msgInvalidWord, nil)
		}
		text, err := p.extract(ctx, format, in.Data)
		if err != nil {
			return p.fallback(info, fmt.Sprintf(msgLegacyFailed, err), err)
		}
		if len(strings.TrimSpace(text)) < p.opts.MinLegacyChars {
			return p.fallback(info, msgLegacyLimited, nil)
		}
		return Result{FileName: info.Name, Content: text}
	}

	text, err := p.extract(ctx, format, in.Data)
	if err != nil {
		return p.fallback(info, fmt.Sprintf(msgExtractFailed, err), err)
	}
	if text == "" {
		return p.fallback(info, msgNoText, nil)
	}
	return Result{FileName: info.Name, Content: text}
}

// ExtractBatch processes inputs one after another, in order. One failing
// file never stops the rest.
func (p *Processor) ExtractBatch(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, p.ExtractFile(ctx, in))
	}
	return results
}

// extract runs the strategy chain for a format and normalizes the winner
func (p *Processor) extract(ctx context.Context, format heuristics.Format, data []byte) (string, error) {
	if int64(len(data)) > p.opts.MaxFileSize {
		return "", ErrFileTooLarge
	}

	chain := p.strategies(format)
	if len(chain) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, format)
	}

	text, err := p.firstSuccess(ctx, format, data, chain)
	if err != nil {
		return "", err
	}
	return heuristics.Normalize(text, p.opts.Normalize), nil
}

// strategies lists the extraction attempts for a format, most faithful first
func (p *Processor) strategies(format heuristics.Format) []strategy {
	switch format {
	case heuristics.FormatPlainText:
		return []strategy{{"plain", p.plainExtractor.Extract}}
	case heuristics.FormatHTML:
		return []strategy{{"html", p.plainExtractor.ExtractHTML}}
	case heuristics.FormatPDF:
		return []strategy{
			{"pdf-text", p.pdfExtractor.Extract},
			{"pdf-content-streams", p.pdfExtractor.ExtractContentStreams},
		}
	case heuristics.FormatDocx:
		return p.docxStrategies()
	case heuristics.FormatODT:
		return []strategy{
			{"odt", p.odtExtractor.Extract},
			{"recover", recoverText},
		}
	case heuristics.FormatLegacyDoc:
		var chain []strategy
		if p.converter != nil {
			chain = append(chain, strategy{"convert-to-docx", p.convertAndExtract})
		}
		return append(chain,
			strategy{"ole-piece-table", p.legacyExtractor.Extract},
			strategy{"recover", recoverText},
		)
	case heuristics.FormatImage:
		if p.ocrProcessor == nil {
			return nil
		}
		return []strategy{{"ocr", p.ocrProcessor.Process}}
	}
	return nil
}

// docxStrategies skips unioffice while it is unlicensed, as it refuses to
// open documents then.
func (p *Processor) docxStrategies() []strategy {
	if !unidoc.Licensed() {
		return []strategy{{"docx-xml", p.wordExtractor.ExtractXML}}
	}
	return []strategy{
		{"docx", p.wordExtractor.Extract},
		{"docx-xml", p.wordExtractor.ExtractXML},
	}
}

// convertAndExtract converts a legacy .doc and reads the resulting .docx
func (p *Processor) convertAndExtract(ctx context.Context, data []byte) (string, error) {
	docx, err := p.converter.ConvertToDocx(ctx, data)
	if err != nil {
		return "", err
	}
	return p.firstSuccess(ctx, heuristics.FormatDocx, docx, p.docxStrategies())
}

// firstSuccess returns the text of the first strategy that yields any
func (p *Processor) firstSuccess(ctx context.Context, format heuristics.Format, data []byte, chain []strategy) (string, error) {
	var errs []error
	for _, s := range chain {
		text, err := s.run(ctx, data)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrNoText
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.logger.Printf("%s strategy %s failed: %v", format, s.name, err)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return "", errors.Join(errs...)
}

func recoverText(ctx context.Context, data []byte) (string, error) {
	text, ok := heuristics.Recover(data)
	if !ok {
		return "", ErrNoText
	}
	return text, nil
}
