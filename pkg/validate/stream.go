package validate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/book_orders/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// Problem — невалидная заявка и номер строки, где она встретилась.
type Problem struct {
	Line int
	Err  error
}

// Report — итог проверки потока заявок.
type Report struct {
	Valid    int
	Invalid  int
	Problems []Problem
}

func (r Report) String() string {
	return fmt.Sprintf("%d valid / %d invalid", r.Valid, r.Invalid)
}

// ValidateStream читает заявки в JSONL, валидные пишет в w компактным JSON по одной на строку.
// Пустые строки пропускаются, невалидные попадают в Report.Problems.
func ValidateStream(ctx context.Context, validator ports.RequestValidator, r io.Reader, w io.Writer) (Report, error) {
	var rep Report

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		req, err := ValidateRequestFromJSON(ctx, validator, raw)
		if err != nil {
			rep.Invalid++
			rep.Problems = append(rep.Problems, Problem{Line: line, Err: err})
			continue
		}
		if err := writeLine(w, req); err != nil {
			return rep, err
		}
		rep.Valid++
	}
	if err := scanner.Err(); err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}
	return rep, nil
}

// ValidateFile проверяет файл как JSON (одна заявка) или JSONL.
// FormatAuto выбирает формат по расширению, по умолчанию JSON.
func ValidateFile(ctx context.Context, validator ports.RequestValidator, path string, format InputFormat, w io.Writer) (Report, error) {
	if format == FormatAuto {
		format = FormatJSON
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			format = FormatJSONL
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Validate(ctx, validator, file, format, w)
}

// Validate проверяет поток в заданном формате.
func Validate(ctx context.Context, validator ports.RequestValidator, r io.Reader, format InputFormat, w io.Writer) (Report, error) {
	switch format {
	case FormatJSONL:
		return ValidateStream(ctx, validator, r, w)
	case FormatJSON:
		raw, err := io.ReadAll(r)
		if err != nil {
			return Report{}, fmt.Errorf("read input: %w", err)
		}
		req, err := ValidateRequestFromJSON(ctx, validator, raw)
		if err != nil {
			return Report{Invalid: 1, Problems: []Problem{{Line: 1, Err: err}}}, nil
		}
		if err := writeLine(w, req); err != nil {
			return Report{}, err
		}
		return Report{Valid: 1}, nil
	default:
		return Report{}, fmt.Errorf("unsupported format: %s", format)
	}
}

func writeLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
