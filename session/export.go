package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "md"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("session: unknown export format %q", s)
	}
}

// Export writes one session to w.
func Export(w io.Writer, s Session, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return exportMarkdown(w, s)
	default:
		return fmt.Errorf("session: unknown export format %q", f)
	}
}

func exportMarkdown(w io.Writer, s Session) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "_Created %s, updated %s_\n", s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	for _, m := range s.Messages {
		who := "You"
		if m.Sender == SenderAssistant {
			who = "Assistant"
			if m.ModelUsed != "" {
				who += " (" + m.ModelUsed + ")"
			}
		}
		fmt.Fprintf(&b, "\n### %s · %s\n\n%s\n", who, m.Timestamp.Format("2006-01-02 15:04:05"), m.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
