package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pagescan/internal/pipeline"
)

// formatBatchResults renders results in the requested format; unknown
// formats fall back to text.
func formatBatchResults(results []pipeline.FileResult, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(results)
	case FormatCSV:
		return formatCSV(results)
	default:
		return formatText(results)
	}
}

func formatJSON(results []pipeline.FileResult) (string, error) {
	out := struct {
		Images []pipeline.FileResult `json:"images"`
	}{Images: results}
	if out.Images == nil {
		out.Images = []pipeline.FileResult{}
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

var csvHeader = []string{
	"file", "found", "width", "height", "mode", "parallel", "fallback", "aspect_ratio",
	"tl_x", "tl_y", "tr_x", "tr_y", "br_x", "br_y", "bl_x", "bl_y",
	"rotation", "text_confidence", "error",
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func csvRow(r pipeline.FileResult) []string {
	row := make([]string, len(csvHeader))
	row[0] = r.Path
	row[len(row)-1] = r.Error
	res := r.Result
	if res == nil {
		return row
	}
	row[1] = strconv.FormatBool(res.Found)
	if rx := res.Rectified; rx != nil {
		row[2] = strconv.Itoa(rx.Width)
		row[3] = strconv.Itoa(rx.Height)
		row[4] = string(rx.Mode)
		row[5] = strconv.FormatBool(rx.Parallel)
		row[6] = strconv.FormatBool(rx.Fallback)
		row[7] = formatFloat(rx.AspectRatio)
	}
	if c := res.Corners; c != nil {
		for i, p := range c {
			row[8+2*i] = formatFloat(p.X)
			row[9+2*i] = formatFloat(p.Y)
		}
	}
	if res.Orientation != nil {
		row[16] = strconv.Itoa(res.Orientation.Degrees)
	}
	if res.Text != nil {
		row[17] = formatFloat(res.Text.Confidence)
	}
	return row
}

func formatCSV(results []pipeline.FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range results {
		if err := writer.Write(csvRow(r)); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(results []pipeline.FileResult) (string, error) {
	var output strings.Builder
	for i, r := range results {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", r.Path)
		switch {
		case r.Err != nil:
			fmt.Fprintf(&output, "error: %s\n", r.Error)
		case r.Result == nil || r.Result.Rectified == nil:
			output.WriteString("no page found\n")
		default:
			rx := r.Result.Rectified
			fmt.Fprintf(&output, "page %dx%d mode=%s parallel=%t fallback=%t\n",
				rx.Width, rx.Height, rx.Mode, rx.Parallel, rx.Fallback)
			if o := r.Result.Orientation; o != nil && o.Degrees != 0 {
				fmt.Fprintf(&output, "rotated %d degrees\n", o.Degrees)
			}
			if txt := r.Result.Text; txt != nil && txt.Content != "" {
				output.WriteString(strings.TrimRight(txt.Content, "\n"))
				output.WriteString("\n")
			}
		}
	}
	return output.String(), nil
}
