// Package output writes the family report and the failure listing.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rohankatakam/familydex/internal/errors"
	"github.com/rohankatakam/familydex/internal/family"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/ranking"
)

// Renderer turns an identity into its display label
type Renderer interface {
	Render(id models.Identity) string
}

// Formatter defines report formatting
type Formatter interface {
	Format(families []*models.Family, w io.Writer) error
}

// Format names
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewFormatter returns the formatter for name. Unknown names fall back to text.
func NewFormatter(name string, renderer Renderer) Formatter {
	switch name {
	case FormatJSON:
		return &JSONFormatter{Renderer: renderer}
	default:
		return &TextFormatter{Renderer: renderer}
	}
}

// TextFormatter writes one display label per line, families in order
type TextFormatter struct {
	Renderer Renderer
}

func (f *TextFormatter) Format(families []*models.Family, w io.Writer) error {
	for _, fam := range families {
		for _, id := range fam.Members {
			if _, err := fmt.Fprintln(w, f.Renderer.Render(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// JSONFormatter writes the families with their chain and head rank
type JSONFormatter struct {
	Renderer Renderer
}

type jsonFamily struct {
	Chain    int          `json:"chain"`
	HeadRank *int         `json:"head_rank"` // null when unranked
	Members  []jsonMember `json:"members"`
}

type jsonMember struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (f *JSONFormatter) Format(families []*models.Family, w io.Writer) error {
	out := make([]jsonFamily, 0, len(families))
	for _, fam := range families {
		jf := jsonFamily{Chain: fam.Chain.ID}
		if fam.HeadRank != ranking.Unranked {
			rank := fam.HeadRank
			jf.HeadRank = &rank
		}
		for _, id := range fam.Members {
			jf.Members = append(jf.Members, jsonMember{ID: string(id), Label: f.Renderer.Render(id)})
		}
		out = append(out, jf)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteFailures writes one "chain <id>: <error>" line per failure
func WriteFailures(w io.Writer, failures []family.Failure) error {
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "chain %d: %v\n", f.Chain.ID, f.Err); err != nil {
			return err
		}
	}
	return nil
}

// WriteReportFile formats families into path, replacing it atomically
func WriteReportFile(path string, families []*models.Family, formatter Formatter) error {
	return writeFile(path, func(w io.Writer) error {
		return formatter.Format(families, w)
	})
}

// WriteFailuresFile writes the failure listing to path
func WriteFailuresFile(path string, failures []family.Failure) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteFailures(w, failures)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.FileSystemErrorf(err, "create directory %s", dir)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.FileSystemErrorf(err, "create %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return errors.FileSystemErrorf(err, "write %s", path)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return errors.FileSystemErrorf(err, "chmod %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.FileSystemErrorf(err, "close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.FileSystemErrorf(err, "rename into %s", path)
	}
	return nil
}
