// Package report renders analysis output into files under the configured
// output directory.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// Data carries everything a report needs.
type Data struct {
	Target          model.Target
	JobID           string
	Videos          []model.Video
	Comments        map[string][]model.Comment
	VideoAnalyses   []model.VideoAnalysis
	CommentAnalyses []model.CommentAnalysis
	Summary         string
}

// Artifact names returned by Generate.
const (
	ArtifactText        = "text"
	ArtifactExcel       = "excel"
	ArtifactCommentsCSV = "comments_csv"
)

// Generator renders a report and returns the generated files keyed by
// artifact name.
type Generator interface {
	Generate(ctx context.Context, data Data) (map[string]string, error)
}

// FileGenerator writes a text report, a comments CSV, and an Excel workbook.
// The workbook is the primary artifact; if it cannot be produced the text
// report stands in for it.
type FileGenerator struct {
	OutputDir string
}

// NewFileGenerator creates a generator writing into outputDir.
func NewFileGenerator(outputDir string) *FileGenerator {
	return &FileGenerator{OutputDir: outputDir}
}

func (g *FileGenerator) Generate(ctx context.Context, data Data) (map[string]string, error) {
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create output dir")
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", data.Target.Identifier(), stamp)
	artifacts := make(map[string]string, 3)

	textPath := filepath.Join(g.OutputDir, base+".txt")
	if err := g.writeText(textPath, data); err != nil {
		return nil, eris.Wrap(err, "report: write text report")
	}
	artifacts[ArtifactText] = textPath

	csvPath := filepath.Join(g.OutputDir, base+"_comments.csv")
	switch err := g.writeCommentsCSV(csvPath, data); {
	case err != nil:
		zap.L().Warn("report: comments csv failed", zap.Error(err))
	case len(data.Comments) > 0:
		artifacts[ArtifactCommentsCSV] = csvPath
	}

	xlsxPath := filepath.Join(g.OutputDir, base+".xlsx")
	if err := g.writeWorkbook(xlsxPath, data); err != nil {
		zap.L().Warn("report: workbook generation failed, text report is primary",
			zap.String("target", data.Target.Identifier()),
			zap.Error(err),
		)
		return artifacts, nil
	}
	artifacts[ArtifactExcel] = xlsxPath
	return artifacts, nil
}

// Primary picks the artifact a job should record: the workbook when it was
// produced, otherwise the text report.
func Primary(artifacts map[string]string) string {
	if p, ok := artifacts[ArtifactExcel]; ok {
		return p
	}
	return artifacts[ArtifactText]
}

// joinedRow is one analysis matched to its video metadata.
type joinedRow struct {
	video    model.Video
	analysis model.VideoAnalysis
}

// joinAnalyses inner-joins analyses with video metadata and orders the result
// by view count, most viewed first.
func joinAnalyses(data Data) []joinedRow {
	byURL := make(map[string]model.Video, len(data.Videos))
	for _, v := range data.Videos {
		byURL[v.URL] = v
	}
	rows := make([]joinedRow, 0, len(data.VideoAnalyses))
	for _, a := range data.VideoAnalyses {
		v, ok := byURL[a.VideoURL]
		if !ok {
			continue
		}
		rows = append(rows, joinedRow{video: v, analysis: a})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].video.Views > rows[j].video.Views })
	return rows
}

func (g *FileGenerator) writeText(path string, data Data) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Review Analysis: %s %s\n", data.Target.Company, data.Target.Product)
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Videos analyzed: %d\n\n", len(data.VideoAnalyses))

	if data.Summary != "" {
		b.WriteString("== Summary ==\n")
		b.WriteString(data.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("== Videos ==\n")
	for _, r := range joinAnalyses(data) {
		fmt.Fprintf(&b, "- %s (%s, %d views): %s %d/100\n",
			r.video.Title, r.video.ChannelTitle, r.video.Views,
			r.analysis.Sentiment, r.analysis.SentimentScore)
		if r.analysis.FinalVerdict != "" {
			fmt.Fprintf(&b, "  %s\n", r.analysis.FinalVerdict)
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

var analysisHeader = []string{
	"Video", "Channel", "Views", "Likes", "Duration",
	"Sentiment", "Score", "Strengths", "Weaknesses", "Final Verdict",
}

func (g *FileGenerator) writeWorkbook(path string, data Data) error {
	f := xlsx.NewFile()

	analysis, err := f.AddSheet("Analysis")
	if err != nil {
		return eris.Wrap(err, "report: add analysis sheet")
	}
	addRow(analysis, analysisHeader...)
	for _, r := range joinAnalyses(data) {
		addRow(analysis,
			r.video.Title,
			r.video.ChannelTitle,
			fmt.Sprintf("%d", r.video.Views),
			fmt.Sprintf("%d", r.video.Likes),
			r.video.DurationFormatted,
			r.analysis.Sentiment,
			fmt.Sprintf("%d", r.analysis.SentimentScore),
			strings.Join(r.analysis.Strengths, "; "),
			strings.Join(r.analysis.Weaknesses, "; "),
			r.analysis.FinalVerdict,
		)
	}

	videos, err := f.AddSheet("Videos")
	if err != nil {
		return eris.Wrap(err, "report: add videos sheet")
	}
	addRow(videos, "Title", "Channel", "URL", "Published", "Views", "Likes", "Comments", "Duration")
	for _, v := range data.Videos {
		addRow(videos,
			v.Title,
			v.ChannelTitle,
			v.URL,
			v.PublishedAt.Format("2006-01-02"),
			fmt.Sprintf("%d", v.Views),
			fmt.Sprintf("%d", v.Likes),
			fmt.Sprintf("%d", v.CommentCount),
			v.DurationFormatted,
		)
	}

	comments, err := f.AddSheet("Comments")
	if err != nil {
		return eris.Wrap(err, "report: add comments sheet")
	}
	addRow(comments, "Video", "Themes", "Recurring Topics", "Keywords", "Personas")
	byURL := make(map[string]model.Video, len(data.Videos))
	for _, v := range data.Videos {
		byURL[v.URL] = v
	}
	for _, a := range data.CommentAnalyses {
		names := make([]string, 0, len(a.Personas))
		for _, p := range a.Personas {
			names = append(names, p.Name)
		}
		addRow(comments,
			byURL[a.VideoURL].Title,
			strings.Join(a.Themes, "; "),
			strings.Join(a.RecurringTopics, "; "),
			strings.Join(a.Keywords, "; "),
			strings.Join(names, "; "),
		)
	}

	return eris.Wrap(f.Save(path), "report: save workbook")
}

func (g *FileGenerator) writeCommentsCSV(path string, data Data) error {
	if len(data.Comments) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create comments csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Video ID", "Author", "Likes", "Published", "Comment"}); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}

	ids := make([]string, 0, len(data.Comments))
	for id := range data.Comments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, c := range data.Comments[id] {
			row := []string{
				c.VideoID,
				c.Author,
				fmt.Sprintf("%d", c.Likes),
				c.PublishedAt.Format("2006-01-02"),
				c.Text,
			}
			if err := w.Write(row); err != nil {
				return eris.Wrap(err, "report: write csv row")
			}
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "report: flush csv")
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}
