package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ignite/courier/internal/provider"
)

func TestFormatSubstitution(t *testing.T) {
	tests := []struct {
		name string
		in   string
		vars map[string]any
		want string
	}{
		{
			name: "plain key",
			in:   "Hello {{name}}!",
			vars: map[string]any{"name": "Ada"},
			want: "Hello Ada!",
		},
		{
			name: "missing key renders empty",
			in:   "Hello {{name}}!",
			vars: map[string]any{},
			want: "Hello !",
		},
		{
			name: "missing key with default",
			in:   "Hello {{name ?? friend}}!",
			vars: map[string]any{},
			want: "Hello friend!",
		},
		{
			name: "present key ignores default",
			in:   "Hello {{name ?? friend}}!",
			vars: map[string]any{"name": "Ada"},
			want: "Hello Ada!",
		},
		{
			name: "slice renders list items",
			in:   "<ul>{{items}}</ul>",
			vars: map[string]any{"items": []string{"one", "two"}},
			want: "<ul><li>one</li><li>two</li></ul>",
		},
		{
			name: "whitespace tolerant",
			in:   "Hi {{ name }} and {{ other ?? you }}",
			vars: map[string]any{"name": "Ada"},
			want: "Hi Ada and you",
		},
		{
			name: "non-string scalar",
			in:   "Order #{{id}}",
			vars: map[string]any{"id": 42},
			want: "Order #42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Format("", tt.in, tt.vars)
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSubjectAndBodyIndependently(t *testing.T) {
	subject, body := Format("Welcome {{name}}", "Bye {{name ?? stranger}}", map[string]any{"name": "Ada"})
	if subject != "Welcome Ada" || body != "Bye Ada" {
		t.Errorf("Format() = %q / %q", subject, body)
	}
}

func TestCompileHTMLPassesThrough(t *testing.T) {
	doc := "<!DOCTYPE html><html><body>custom</body></html>"
	if got := Compile(doc, "Acme", true); got != doc {
		t.Errorf("Compile() altered html content:\n%s", got)
	}
}

func TestCompilePlainContentGetsLayout(t *testing.T) {
	got := Compile("Hello there.\n\nSecond paragraph.", "Acme", false)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<p>Hello there.</p>",
		"<p>Second paragraph.</p>",
		"Sent by Acme",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Compile() output missing %q", want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	html := "<p>Hello &amp; welcome</p><p>Visit <a href=\"https://example.org\">us</a></p>"
	want := "Hello & welcome\nVisit us"
	if got := StripHTML(html); got != want {
		t.Errorf("StripHTML() = %q, want %q", got, want)
	}
}

type failingProvider struct{}

func (failingProvider) GetDomain(context.Context, string) (*provider.Domain, error) {
	return nil, errors.New("unreachable")
}
func (failingProvider) CreateDomain(context.Context, string) (*provider.Domain, error) {
	return nil, errors.New("unreachable")
}
func (failingProvider) SendMessage(context.Context, string, *provider.Message) (string, error) {
	return "", errors.New("unreachable")
}

type okProvider struct {
	last *provider.Message
}

func (okProvider) GetDomain(context.Context, string) (*provider.Domain, error) {
	return nil, provider.ErrDomainNotFound
}
func (okProvider) CreateDomain(context.Context, string) (*provider.Domain, error) {
	return nil, provider.ErrDomainExists
}
func (p *okProvider) SendMessage(_ context.Context, _ string, msg *provider.Message) (string, error) {
	p.last = msg
	return "real-id", nil
}

func TestSendReturnsSyntheticIDOnFailure(t *testing.T) {
	s := NewSender(failingProvider{})
	id := s.Send(context.Background(), SendRequest{
		Domain: "acme.com", From: "a@acme.com", To: []string{"b@example.org"},
		Subject: "Hi", HTML: "<p>Hi</p>",
	})
	if !strings.HasPrefix(id, "error-") {
		t.Errorf("id = %q, want error- prefix", id)
	}
}

func TestSendDerivesTextPart(t *testing.T) {
	p := &okProvider{}
	s := NewSender(p)

	id := s.Send(context.Background(), SendRequest{
		Domain: "acme.com", From: "a@acme.com", To: []string{"b@example.org"},
		Subject: "Hi", HTML: "<p>Hello there</p>",
	})
	if id != "real-id" {
		t.Fatalf("id = %q", id)
	}
	if p.last.Text != "Hello there" {
		t.Errorf("text part = %q, want derived from html", p.last.Text)
	}
}
