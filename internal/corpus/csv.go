package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/valpere/tibtran/internal"
)

// TermColumns is the header of the standardized terms CSV.
var TermColumns = []string{"tibetan_term", "standard_translation", "rationale", "target_audience"}

// FrequencyColumns is the header of the term frequency CSV.
var FrequencyColumns = []string{"tibetan_term", "translation_freq", "translation_count"}

func WriteTermsCSV(path string, terms []internal.StandardizedTerm) error {
	return writeCSV(path, TermColumns, func(w *csv.Writer) error {
		for _, t := range terms {
			if err := w.Write([]string{t.TibetanTerm, t.StandardTranslation, t.Rationale, t.TargetAudience}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadTermsCSV reads a file written by WriteTermsCSV. Columns are matched by
// header name so hand-edited files may reorder them.
func ReadTermsCSV(path string) ([]internal.StandardizedTerm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var out []internal.StandardizedTerm
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, internal.StandardizedTerm{
			TibetanTerm:         field(row, "tibetan_term"),
			StandardTranslation: field(row, "standard_translation"),
			Rationale:           field(row, "rationale"),
			TargetAudience:      field(row, "target_audience"),
		})
	}
	return out, nil
}

func WriteFrequenciesCSV(path string, freqs []TermFrequency) error {
	return writeCSV(path, FrequencyColumns, func(w *csv.Writer) error {
		for _, f := range freqs {
			if err := w.Write([]string{f.TibetanTerm, f.TranslationFreq, strconv.Itoa(f.TranslationCount)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := rows(w); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
