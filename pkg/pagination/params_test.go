package pagination

import (
	"reflect"
	"testing"
)

func TestParams_SetKeepsOrder(t *testing.T) {
	p := NewParams().Set("b", "1").Set("a", "2").Set("b", "3")

	if got, want := p.Keys(), []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := p.Get("b"); v != "3" {
		t.Errorf("Get(b) = %q, want %q", v, "3")
	}
	if got, want := p.Encode(), "b=3&a=2"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestParams_Clone(t *testing.T) {
	p := NewParams().SetInt("start", 0)
	c := p.Clone()
	c.SetInt("start", 100).Set("extra", "x")

	if v, _ := p.Get("start"); v != "0" {
		t.Errorf("original start = %q, want %q", v, "0")
	}
	if p.Len() != 1 {
		t.Errorf("original Len() = %d, want 1", p.Len())
	}
}

func TestParams_EncodeEscapes(t *testing.T) {
	p := NewParams().Set("expand", "body.storage,version").Set("q", "a b")
	if got, want := p.Encode(), "expand=body.storage%2Cversion&q=a+b"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestMergeContinuation(t *testing.T) {
	tests := []struct {
		name    string
		initial map[string]string
		order   []string
		next    string
		ignore  []string
		want    map[string]string
	}{
		{
			name:    "carry over keys absent from continuation",
			initial: map[string]string{"expand": "a,b", "status": "current"},
			order:   []string{"expand", "status"},
			next:    "/rest/api/space?start=100",
			want:    map[string]string{"expand": "a,b", "status": "current", "start": "100"},
		},
		{
			name:    "repeated key is joined",
			initial: map[string]string{},
			next:    "/rest/api/space?key=value1&key=value2",
			want:    map[string]string{"key": "value1,value2"},
		},
		{
			name:    "continuation replaces existing value",
			initial: map[string]string{"start": "0", "limit": "100"},
			order:   []string{"start", "limit"},
			next:    "/rest/api/space/ABC/content/page?next=true&limit=25&start=25",
			ignore:  []string{"next"},
			want:    map[string]string{"start": "25", "limit": "25"},
		},
		{
			name:    "ignored keys are skipped",
			initial: map[string]string{"status": "current"},
			order:   []string{"status"},
			next:    "/rest/api/space?next=true&type=global&status=archived&start=100",
			ignore:  []string{"next", "type", "status"},
			want:    map[string]string{"status": "current", "start": "100"},
		},
		{
			name:    "blank values are skipped",
			initial: map[string]string{"cursor": "abc"},
			order:   []string{"cursor"},
			next:    "https://example.atlassian.net/wiki/rest/api/space?cursor=&flag&start=5",
			want:    map[string]string{"cursor": "abc", "start": "5"},
		},
		{
			name:    "escaped values are decoded",
			initial: map[string]string{},
			next:    "/rest/api/space?expand=body.storage%2Cversion&cursor=a%3Db",
			want:    map[string]string{"expand": "body.storage,version", "cursor": "a=b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams()
			for _, k := range tt.order {
				p.Set(k, tt.initial[k])
			}

			if err := MergeContinuation(tt.next, p, tt.ignore...); err != nil {
				t.Fatalf("MergeContinuation() error = %v", err)
			}
			if got := p.Map(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("params = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeContinuation_NewKeysAppendInOrder(t *testing.T) {
	p := NewParams().Set("limit", "100")
	if err := MergeContinuation("/x?cursor=c1&start=10&limit=50", p); err != nil {
		t.Fatalf("MergeContinuation() error = %v", err)
	}
	if got, want := p.Keys(), []string{"limit", "cursor", "start"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestMergeContinuation_Malformed(t *testing.T) {
	tests := []string{
		"/x?start=%zz",
		"://bad url",
	}
	for _, next := range tests {
		if err := MergeContinuation(next, NewParams()); err == nil {
			t.Errorf("MergeContinuation(%q) error = nil, want error", next)
		}
	}
}
