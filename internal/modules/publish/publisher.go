package publish

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/domain"
)

// Uploader puts a rendered document into remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// Publisher fans a result out to every configured destination. The JSON file
// is mandatory; the workbook and the upload are skipped when nil.
type Publisher struct {
	file      *FileWriter
	workbook  *WorkbookWriter
	uploader  Uploader
	objectKey string
	log       zerolog.Logger
}

// NewPublisher creates a publisher writing data.json through file.
func NewPublisher(file *FileWriter, log zerolog.Logger) *Publisher {
	return &Publisher{
		file: file,
		log:  log.With().Str("component", "publisher").Logger(),
	}
}

// WithWorkbook also exports every result as a workbook.
func (p *Publisher) WithWorkbook(w *WorkbookWriter) *Publisher {
	p.workbook = w
	return p
}

// WithUploader also uploads the JSON document under objectKey.
func (p *Publisher) WithUploader(u Uploader, objectKey string) *Publisher {
	p.uploader = u
	p.objectKey = objectKey
	return p
}

// Publish writes result to every destination. The local file is written first;
// a failing workbook or upload is reported after the file is already in place.
func (p *Publisher) Publish(ctx context.Context, result *domain.AnalysisResult) error {
	data, err := Encode(result)
	if err != nil {
		return err
	}

	if err := p.file.Write(data); err != nil {
		return err
	}

	if p.workbook != nil {
		if err := p.workbook.Write(result); err != nil {
			return fmt.Errorf("workbook export: %w", err)
		}
	}

	if p.uploader != nil {
		if err := p.uploader.Upload(ctx, p.objectKey, data, "application/json"); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	p.log.Debug().Strs("periods", result.PeriodLabels()).Msg("Published analysis result")
	return nil
}
