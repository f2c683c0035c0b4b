package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/Sternrassler/swrangler/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output kinds, used as directory names under <out>/<space>/.
const (
	KindHTML = "html"
	KindJSON = "json"
	KindText = "txt"
	KindCSV  = "csv"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div>{{.Content}}</div>
</body>
</html>
`))

// Exporter writes files below OutDir. Links in reports are built from
// BaseURL, the wiki root (https://<site>/wiki).
type Exporter struct {
	OutDir  string
	BaseURL string
	logger  zerolog.Logger
}

// New creates an exporter.
func New(outDir, baseURL string) *Exporter {
	return &Exporter{
		OutDir:  outDir,
		BaseURL: baseURL,
		logger:  log.With().Str("component", "export").Logger(),
	}
}

// RenderHTML renders a standalone page. content is the storage-format body
// and is inserted unescaped.
func RenderHTML(title, content string) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{title, template.HTML(content)})
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// MarshalPage encodes page with a 4-space indent and no HTML escaping.
func MarshalPage(page pagination.Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePages writes every page of a space as HTML, JSON and plain text.
func (e *Exporter) SavePages(spaceKey string, pages []pagination.Item) error {
	e.logger.Info().Str("space_key", spaceKey).Int("pages", len(pages)).Msg("Render pages")

	for _, page := range pages {
		if err := e.savePage(spaceKey, page); err != nil {
			return fmt.Errorf("page %s: %w", page.ID(), err)
		}
	}
	return nil
}

func (e *Exporter) savePage(spaceKey string, page pagination.Item) error {
	title := page.String("title")
	body := page.String("body.storage.value")

	htmlPath, err := PagePath(e.OutDir, spaceKey, KindHTML, page)
	if err != nil {
		return err
	}
	html, err := RenderHTML(title, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(htmlPath+".html", html, 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	jsonPath, err := PagePath(e.OutDir, spaceKey, KindJSON, page)
	if err != nil {
		return err
	}
	data, err := MarshalPage(page)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if err := os.WriteFile(jsonPath+".json", data, 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}

	textPath, err := PagePath(e.OutDir, spaceKey, KindText, page)
	if err != nil {
		return err
	}
	text, err := PlainText(body)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if err := os.WriteFile(textPath+".txt", []byte(text), 0o644); err != nil {
		return fmt.Errorf("write txt: %w", err)
	}

	e.logger.Debug().Str("space_key", spaceKey).Str("content_id", page.ID()).Str("path", htmlPath).Msg("Page saved")
	return nil
}
