package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/swrangler/pkg/analytics"
	"github.com/Sternrassler/swrangler/pkg/pagination"
)

const baseURL = "https://acme.atlassian.net/wiki"

func fixturePages(t *testing.T) []pagination.Item {
	t.Helper()
	return []pagination.Item{
		item(t, `{
			"id": "10", "title": "Zeta & Co",
			"body": {"storage": {"value": "<p>Hello <b>world</b></p>"}},
			"ancestors": [],
			"history": {
				"createdDate": "2023-01-15T10:00:00.000Z",
				"lastUpdated": {"when": "2024-03-01T08:00:00.000Z", "by": {"displayName": "Bob"}},
				"ownedBy": {"displayName": "Ann", "accountId": "a-1"}
			},
			"_links": {"webui": "/spaces/ENG/pages/10/Zeta"}
		}`),
		item(t, `{
			"id": "11", "title": "Отчёт",
			"body": {"storage": {"value": "<p>Текст</p>"}},
			"ancestors": [{"title": "Zeta & Co"}],
			"history": {
				"createdDate": "2023-02-01T10:00:00.000Z",
				"lastUpdated": {"when": "2024-06-30T08:00:00.000Z", "by": {"displayName": "Ann"}},
				"ownedBy": {"displayName": "Ann", "accountId": "a-1"}
			},
			"_links": {"webui": "/spaces/ENG/pages/11"}
		}`),
		item(t, `{
			"id": "12", "title": "Alpha",
			"body": {"storage": {"value": "<p>English</p>"}},
			"ancestors": [],
			"history": {
				"createdDate": "2022-07-04T10:00:00.000Z",
				"lastUpdated": {"when": "2022-07-05T08:00:00.000Z", "by": {"displayName": "Cy"}},
				"ownedBy": {"displayName": "Cy (Deleted)", "accountId": "c-3"}
			},
			"_links": {"webui": "/spaces/ENG/pages/12"}
		}`),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func intp(n int) *int { return &n }

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("R&D <notes>", "<p>raw <b>body</b></p>")
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	html := string(out)

	if !strings.Contains(html, "<h1>R&amp;D &lt;notes&gt;</h1>") {
		t.Errorf("title should be escaped, got %s", html)
	}
	if !strings.Contains(html, "<div><p>raw <b>body</b></p></div>") {
		t.Errorf("body should be inserted verbatim, got %s", html)
	}
}

func TestMarshalPage(t *testing.T) {
	page := item(t, `{"id":"1","title":"A <b> & C","nested":{"k":"v"}}`)

	data, err := MarshalPage(page)
	if err != nil {
		t.Fatalf("MarshalPage() error = %v", err)
	}
	s := string(data)

	if !strings.Contains(s, `"title": "A <b> & C"`) {
		t.Errorf("HTML should not be escaped: %s", s)
	}
	if !strings.Contains(s, "\n    \"id\": \"1\"") {
		t.Errorf("expected 4-space indent: %s", s)
	}
	if !strings.Contains(s, "\n        \"k\": \"v\"") {
		t.Errorf("expected nested 8-space indent: %s", s)
	}
}

func TestSavePages(t *testing.T) {
	out := t.TempDir()
	e := New(out, baseURL)

	if err := e.SavePages("ENG", fixturePages(t)); err != nil {
		t.Fatalf("SavePages() error = %v", err)
	}

	files := []string{
		filepath.Join(out, "ENG", "html", "Zeta & Co.html"),
		filepath.Join(out, "ENG", "json", "Zeta & Co.json"),
		filepath.Join(out, "ENG", "txt", "Zeta & Co.txt"),
		filepath.Join(out, "ENG", "html", "Zeta & Co", "Отчёт.html"),
		filepath.Join(out, "ENG", "txt", "Alpha.txt"),
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("expected %s: %v", f, err)
		}
	}

	text, err := os.ReadFile(filepath.Join(out, "ENG", "txt", "Zeta & Co.txt"))
	if err != nil {
		t.Fatalf("read txt: %v", err)
	}
	if string(text) != "Hello world" {
		t.Errorf("txt = %q, want %q", text, "Hello world")
	}
}

func TestPagesMetadata(t *testing.T) {
	out := t.TempDir()
	e := New(out, baseURL)

	viewers := analytics.Result{"10": intp(4), "11": nil, "12": intp(0)}
	views := analytics.Result{"10": intp(40), "12": intp(1)}

	path, err := e.PagesMetadata("ENG", fixturePages(t), viewers, views)
	if err != nil {
		t.Fatalf("PagesMetadata() error = %v", err)
	}
	if want := filepath.Join(out, "ENG", "csv", PagesReport); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(PageColumns, "|") {
		t.Errorf("header = %v, want %v", records[0], PageColumns)
	}

	// sorted by structured title
	wantOrder := []string{"/Alpha", "/Zeta & Co", "/Zeta & Co/Отчёт"}
	for i, want := range wantOrder {
		if got := records[i+1][1]; got != want {
			t.Errorf("row %d title = %q, want %q", i+1, got, want)
		}
	}

	alpha := records[1]
	if alpha[2] != "0" || alpha[3] != "1" {
		t.Errorf("alpha counts = %s/%s, want 0/1", alpha[2], alpha[3])
	}

	zeta := records[2]
	want := []string{"10", "/Zeta & Co", "4", "40", "True", "True", "01/15/2023", "03/01/2024", "Bob", "Ann", baseURL + "/spaces/ENG/pages/10/Zeta"}
	for i := range want {
		if zeta[i] != want[i] {
			t.Errorf("zeta[%s] = %q, want %q", PageColumns[i], zeta[i], want[i])
		}
	}

	report := records[3]
	if report[2] != "" || report[3] != "" {
		t.Errorf("failed lookups should be blank, got %q/%q", report[2], report[3])
	}
	if report[4] != "False" || report[5] != "False" {
		t.Errorf("cyrillic page english flags = %s/%s, want False/False", report[4], report[5])
	}
}

func TestOwners(t *testing.T) {
	e := New(t.TempDir(), baseURL)
	owners := e.Owners(fixturePages(t))

	if len(owners) != 2 {
		t.Fatalf("len(owners) = %d, want 2", len(owners))
	}

	ann := owners[0]
	if ann.Name != "Ann" || ann.PagesOwned != 2 {
		t.Errorf("owners[0] = %s/%d, want Ann/2", ann.Name, ann.PagesOwned)
	}
	if ann.LastContribution != "06/30/2024" {
		t.Errorf("Ann.LastContribution = %s, want 06/30/2024", ann.LastContribution)
	}
	if ann.Unlicensed != "FALSE" {
		t.Errorf("Ann.Unlicensed = %s, want FALSE", ann.Unlicensed)
	}
	if ann.URL != baseURL+"/people/a-1" {
		t.Errorf("Ann.URL = %s", ann.URL)
	}

	cy := owners[1]
	if cy.Unlicensed != "TRUE" || cy.PagesOwned != 1 {
		t.Errorf("owners[1] = %+v, want deleted owner with 1 page", cy)
	}
}

func TestOwnersWithoutDates(t *testing.T) {
	e := New(t.TempDir(), baseURL)
	pages := []pagination.Item{
		item(t, `{"id":"1","title":"x","history":{"ownedBy":{"displayName":"Dee","accountId":"d"}}}`),
	}

	owners := e.Owners(pages)
	if len(owners) != 1 || owners[0].LastContribution != "01/01/1970" {
		t.Errorf("owners = %+v, want Dee with epoch contribution", owners)
	}
}

func TestOwnersMetadata(t *testing.T) {
	out := t.TempDir()
	e := New(out, baseURL)

	path, n, err := e.OwnersMetadata("ENG", fixturePages(t))
	if err != nil {
		t.Fatalf("OwnersMetadata() error = %v", err)
	}
	if n != 2 {
		t.Errorf("owners = %d, want 2", n)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if got := strings.Join(records[1], "|"); got != "Ann|FALSE|2|06/30/2024|"+baseURL+"/people/a-1" {
		t.Errorf("row 1 = %s", got)
	}
}

func TestSpacesMetadata(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	e := New(out, baseURL)

	spaces := []pagination.Item{
		item(t, `{"key":"ENG","name":"Engineering","type":"global",
			"history":{"createdDate":"2020-01-02T03:04:05.000Z","createdBy":{"displayName":"Ann"}},
			"_links":{"webui":"/spaces/ENG"}}`),
		item(t, `{"key":"ds","name":"Demonstration Space","type":"global",
			"history":{"createdDate":"2019-11-30T00:00:00.000Z"},
			"_links":{"webui":"/spaces/ds"}}`),
	}

	path, err := e.SpacesMetadata(spaces)
	if err != nil {
		t.Fatalf("SpacesMetadata() error = %v", err)
	}
	if want := filepath.Join(out, SpacesReport); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if got := strings.Join(records[1], "|"); got != "ENG|Engineering|global|Ann|01/02/2020|"+baseURL+"/spaces/ENG" {
		t.Errorf("row 1 = %s", got)
	}
	if records[2][3] != DefaultCreator {
		t.Errorf("Created By = %q, want %q", records[2][3], DefaultCreator)
	}
}
