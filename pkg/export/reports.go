package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Sternrassler/swrangler/pkg/analytics"
	"github.com/Sternrassler/swrangler/pkg/pagination"
)

// Report file names.
const (
	PagesReport  = "pages-metadata.csv"
	OwnersReport = "owners-metadata.csv"
	SpacesReport = "all-spaces.csv"
)

// Column headers.
var (
	PageColumns = []string{
		"Page ID", "Page Title", "Unique Viewers", "Total Views",
		"Title in English", "Content in English", "Created Date",
		"Last Updated Date", "Last Editor", "Current Owner", "Page URL",
	}
	OwnerColumns = []string{
		"Owner", "Unlicensed", "Pages Owned", "Last Contribution", "Owner URL",
	}
	SpaceColumns = []string{
		"Space Key", "Space Name", "Space Type", "Created By", "Created Date", "Space URL",
	}
)

// DefaultCreator stands in for spaces without a recorded creator.
const DefaultCreator = "Confluence"

// PagesMetadata writes <out>/<space>/csv/pages-metadata.csv sorted by
// structured title. viewers and views come from the analytics collector;
// a missing or nil count renders blank.
func (e *Exporter) PagesMetadata(spaceKey string, pages []pagination.Item, viewers, views analytics.Result) (string, error) {
	rows := make([][]string, 0, len(pages))
	for _, page := range pages {
		id := page.ID()
		rows = append(rows, []string{
			id,
			StructuredTitle(page),
			formatCount(viewers[id]),
			formatCount(views[id]),
			capBool(!ContainsCyrillic(page.String("title"))),
			capBool(!ContainsCyrillic(page.String("body.storage.value"))),
			e.date(page, "history.createdDate"),
			e.date(page, "history.lastUpdated.when"),
			page.String("history.lastUpdated.by.displayName"),
			page.String("history.ownedBy.displayName"),
			e.BaseURL + page.String("_links.webui"),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })

	return e.writeSpaceCSV(spaceKey, PagesReport, PageColumns, rows)
}

// Owner aggregates the pages owned by one display name.
type Owner struct {
	Name             string
	AccountID        string
	Unlicensed       string
	PagesOwned       int
	LastContribution string
	URL              string
}

// Owners groups pages by owner display name. The result is sorted by pages
// owned, descending; ties keep first-seen order.
func (e *Exporter) Owners(pages []pagination.Item) []Owner {
	index := make(map[string]int)
	var owners []Owner

	for _, page := range pages {
		name := page.String("history.ownedBy.displayName")
		accountID := page.String("history.ownedBy.accountId")

		i, ok := index[name]
		if !ok {
			i = len(owners)
			index[name] = i
			owners = append(owners, Owner{Name: name, LastContribution: epoch.Format(DateFormat)})
		}
		o := &owners[i]
		o.PagesOwned++
		o.AccountID = accountID
		o.Unlicensed = UnlicensedFlag(name)
		o.URL = PeopleURL(e.BaseURL, accountID)

		if updated := e.date(page, "history.lastUpdated.when"); later(updated, o.LastContribution) {
			o.LastContribution = updated
		}
	}

	sort.SliceStable(owners, func(i, j int) bool { return owners[i].PagesOwned > owners[j].PagesOwned })
	return owners
}

// OwnersMetadata writes <out>/<space>/csv/owners-metadata.csv and returns
// its path and the number of owners.
func (e *Exporter) OwnersMetadata(spaceKey string, pages []pagination.Item) (string, int, error) {
	owners := e.Owners(pages)
	rows := make([][]string, 0, len(owners))
	for _, o := range owners {
		rows = append(rows, []string{
			o.Name, o.Unlicensed, strconv.Itoa(o.PagesOwned), o.LastContribution, o.URL,
		})
	}
	path, err := e.writeSpaceCSV(spaceKey, OwnersReport, OwnerColumns, rows)
	return path, len(owners), err
}

// SpacesMetadata writes <out>/all-spaces.csv in listing order.
func (e *Exporter) SpacesMetadata(spaces []pagination.Item) (string, error) {
	rows := make([][]string, 0, len(spaces))
	for _, space := range spaces {
		createdBy := space.String("history.createdBy.displayName")
		if createdBy == "" {
			createdBy = DefaultCreator
		}
		rows = append(rows, []string{
			space.String("key"),
			space.String("name"),
			space.String("type"),
			createdBy,
			e.date(space, "history.createdDate"),
			e.BaseURL + space.String("_links.webui"),
		})
	}

	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", e.OutDir, err)
	}
	path := filepath.Join(e.OutDir, SpacesReport)
	if err := writeCSV(path, SpaceColumns, rows); err != nil {
		return "", err
	}
	e.logger.Info().Str("path", path).Int("rows", len(rows)).Msg("CSV file saved")
	return path, nil
}

func (e *Exporter) writeSpaceCSV(spaceKey, name string, header []string, rows [][]string) (string, error) {
	dir, err := Dir(e.OutDir, spaceKey, KindCSV)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	e.logger.Info().Str("space_key", spaceKey).Str("path", path).Int("rows", len(rows)).Msg("CSV file saved")
	return path, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = true
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// date formats the timestamp at path, or "" with a warning when absent or
// malformed.
func (e *Exporter) date(item pagination.Item, path string) string {
	raw := item.String(path)
	if raw == "" {
		return ""
	}
	d, err := FormatDate(raw)
	if err != nil {
		e.logger.Warn().Err(err).Str("content_id", item.ID()).Str("field", path).Msg("Unparseable date")
		return ""
	}
	return d
}

// later reports whether MM/DD/YYYY a is after b.
func later(a, b string) bool {
	ta, errA := time.Parse(DateFormat, a)
	tb, errB := time.Parse(DateFormat, b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.After(tb)
}

func formatCount(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// capBool renders True/False.
func capBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
