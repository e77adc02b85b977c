package musicmind

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

var titleIcons = map[string]string{
	OpAnalyze:    "🎵",
	OpPartyVibe:  "🎉",
	OpTranscribe: "🎤",
	OpCaption:    "📱",
}

// WriteText writes a human-readable rendering of r for op.
//
// Content operations print a title banner followed by whichever
// well-known fields are present: analysis text, lyrics, tempo and
// duration. Fields the deployment did not send are skipped. Health
// results print a single status line.
func WriteText(w io.Writer, op Operation, r Result) error {
	v := r.View()
	if op.Method == http.MethodGet {
		return writeHealth(w, v)
	}

	var b strings.Builder
	title := op.Title
	if title == "" {
		title = strings.ToUpper(op.Name)
	}
	if icon := titleIcons[op.Name]; icon != "" {
		title = icon + " " + title
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")

	wrote := false
	if v.Analysis != "" {
		b.WriteString(strings.TrimSpace(v.Analysis) + "\n")
		wrote = true
	}
	if v.Lyrics != "" {
		if wrote {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(v.Lyrics) + "\n")
		wrote = true
	}
	if !wrote {
		b.WriteString("(no analysis returned)\n")
	}

	if v.TempoBPM != nil || v.DurationSeconds != nil {
		b.WriteString("\n")
	}
	if v.TempoBPM != nil {
		fmt.Fprintf(&b, "📊 Tempo: %.1f BPM\n", *v.TempoBPM)
	}
	if v.DurationSeconds != nil {
		fmt.Fprintf(&b, "⏱️  Duration: %.1fs\n", *v.DurationSeconds)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", v.Error)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHealth(w io.Writer, v ResultView) error {
	var line string
	switch {
	case v.Model != "" && (v.Status == "" || v.Status == "healthy"):
		line = fmt.Sprintf("✅ %s is healthy", v.Model)
	case v.Status == "healthy":
		line = "✅ service is healthy"
	case v.Status != "":
		line = fmt.Sprintf("⚠️  service status: %s", v.Status)
	default:
		line = "✅ service responded"
	}
	if v.Cached {
		line += " (model cached)"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// WriteJSON writes r as indented JSON followed by a newline.
func WriteJSON(w io.Writer, r Result) error {
	b, err := r.JSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
