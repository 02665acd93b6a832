// package formatter renders queues, shows and listening history as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Format is an output format name.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat accepts "text", "markdown" (or "md") and "csv".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want text, markdown or csv)", shared.ErrInvalidFlag, s)
}

// Extension returns the file extension for f, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

// tiers lists the quality tiers a song has URLs for, best first.
func tiers(song models.Song) string {
	var out []string
	for _, q := range models.Qualities {
		if song.QualityURLs[q] != "" {
			out = append(out, string(q))
		}
	}
	return strings.Join(out, "/")
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range rows {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// QueueToCSV renders one row per queue item. Current is "*" on the cursor row.
func QueueToCSV(q models.UnifiedQueue) ([]byte, error) {
	headers := []string{"Position", "Current", "QueueID", "Album", "Track", "SongID", "Title", "Artist", "Duration", "Versions", "Quality"}

	rows := make([][]string, 0, len(q.Items))
	for i, item := range q.Items {
		current := ""
		if i == q.CursorIndex {
			current = "*"
		}
		album := ""
		if item.AlbumSource != nil {
			album = item.AlbumSource.AlbumIdentifier
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			current,
			item.QueueID,
			album,
			item.TrackTitle,
			item.Song.ID,
			item.Song.DisplayTitle(),
			item.Song.ArtistName,
			strconv.FormatFloat(item.Song.Duration, 'f', 0, 64),
			strconv.Itoa(len(item.AvailableVersions)),
			tiers(item.Song),
		})
	}
	return writeCSV(headers, rows)
}

// QueueToMarkdown renders the queue under one heading per album group. Ad hoc
// items get their own section.
func QueueToMarkdown(q models.UnifiedQueue) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Queue\n\n")
	fmt.Fprintf(&buf, "**Items**: %d\n", len(q.Items))
	fmt.Fprintf(&buf, "**Shuffle**: %s\n", onOff(q.Shuffle))
	fmt.Fprintf(&buf, "**Repeat**: %s\n\n", q.Repeat)

	writeItem := func(i int) {
		item := q.Items[i]
		marker := ""
		if i == q.CursorIndex {
			marker = " ▶"
		}
		versions := ""
		if n := len(item.AvailableVersions); n > 1 {
			versions = fmt.Sprintf(" _(%d versions)_", n)
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]%s%s\n", i+1, item.Song.ArtistName, item.Song.DisplayTitle(),
			shared.FormatDuration(item.Song.Duration), versions, marker)
	}

	next := 0
	for _, g := range q.Groups {
		if next < g.Start {
			writeAdHoc(&buf, next, g.Start, writeItem)
		}
		fmt.Fprintf(&buf, "## %s\n\n", g.AlbumTitle)
		for i := g.Start; i < g.End; i++ {
			writeItem(i)
		}
		buf.WriteString("\n")
		next = g.End
	}
	if next < len(q.Items) {
		writeAdHoc(&buf, next, len(q.Items), writeItem)
	}

	return buf.Bytes(), nil
}

func writeAdHoc(buf *bytes.Buffer, start, end int, write func(int)) {
	buf.WriteString("## Queued songs\n\n")
	for i := start; i < end; i++ {
		write(i)
	}
	buf.WriteString("\n")
}

// QueueToText renders the queue as a numbered list with the cursor marked.
func QueueToText(q models.UnifiedQueue) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Queue: %d items (shuffle %s, repeat %s)\n\n", len(q.Items), onOff(q.Shuffle), q.Repeat)
	for i, item := range q.Items {
		marker := "  "
		if i == q.CursorIndex {
			marker = "> "
		}
		fmt.Fprintf(&buf, "%s%d. %s - %s (%s)\n", marker, i+1, item.Song.ArtistName, item.Song.DisplayTitle(),
			shared.FormatDuration(item.Song.Duration))
	}
	return buf.Bytes(), nil
}

// AlbumToCSV renders one row per recorded version of every track.
func AlbumToCSV(album models.Album) ([]byte, error) {
	headers := []string{"Track", "Title", "Version", "SongID", "Artist", "Date", "Venue", "Duration", "Quality", "Streamable"}

	var rows [][]string
	for i, track := range album.Tracks {
		for v, song := range track.Songs {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				track.Title,
				strconv.Itoa(v + 1),
				song.ID,
				song.ArtistName,
				song.Date,
				song.Venue,
				strconv.FormatFloat(song.Duration, 'f', 0, 64),
				tiers(song),
				strconv.FormatBool(song.IsStreamable),
			})
		}
	}
	return writeCSV(headers, rows)
}

// AlbumToMarkdown renders a show with optional cover image.
func AlbumToMarkdown(album models.Album, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", album.Title)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Artist**: %s\n", album.ArtistName)
	if album.Date != "" {
		fmt.Fprintf(&buf, "**Date**: %s\n", album.Date)
	}
	if album.Venue != "" {
		fmt.Fprintf(&buf, "**Venue**: %s\n", album.Venue)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", album.TotalTracks)

	buf.WriteString("## Setlist\n\n")
	for i, track := range album.Tracks {
		duration := ""
		if len(track.Songs) > 0 {
			duration = fmt.Sprintf(" [%s]", shared.FormatDuration(track.Songs[0].Duration))
		}
		fmt.Fprintf(&buf, "%d. %s%s\n", i+1, track.Title, duration)
		if len(track.Songs) > 1 {
			for _, song := range track.Songs {
				fmt.Fprintf(&buf, "   - %s", song.ID)
				if song.Source != "" {
					fmt.Fprintf(&buf, " (%s)", song.Source)
				}
				buf.WriteString("\n")
			}
		}
	}
	return buf.Bytes(), nil
}

// AlbumToText renders a show as a plain setlist.
func AlbumToText(album models.Album) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Show: %s\n", album.Title)
	fmt.Fprintf(&buf, "Artist: %s\n", album.ArtistName)
	if where := lo.Compact([]string{album.Date, album.Venue}); len(where) > 0 {
		fmt.Fprintf(&buf, "Where: %s\n", strings.Join(where, ", "))
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", album.TotalTracks)

	for i, track := range album.Tracks {
		fmt.Fprintf(&buf, "%d. %s", i+1, track.Title)
		if track.SongCount > 1 {
			fmt.Fprintf(&buf, " (%d versions)", track.SongCount)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// HistoryToCSV renders listening history records.
func HistoryToCSV(records []models.PlayRecord) ([]byte, error) {
	headers := []string{"ID", "When", "Event", "SongID", "Title", "Artist", "Album", "Detail"}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.Event,
			rec.SongID,
			rec.Title,
			rec.Artist,
			rec.Album,
			rec.Detail,
		})
	}
	return writeCSV(headers, rows)
}

// HistoryToText renders listening history one line per record.
func HistoryToText(records []models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		fmt.Fprintf(&buf, "%s  %-16s %s - %s", rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.Event, rec.Artist, rec.Title)
		if rec.Detail != "" {
			fmt.Fprintf(&buf, " (%s)", rec.Detail)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// RenderQueue renders q in format f.
func RenderQueue(q models.UnifiedQueue, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return QueueToCSV(q)
	case FormatMarkdown:
		return QueueToMarkdown(q)
	default:
		return QueueToText(q)
	}
}

// RenderAlbum renders album in format f.
func RenderAlbum(album models.Album, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return AlbumToCSV(album)
	case FormatMarkdown:
		return AlbumToMarkdown(album, "")
	default:
		return AlbumToText(album)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// albumMetadata is an album without its tracks.
type albumMetadata struct {
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	ArtistName  string `json:"artistName"`
	Venue       string `json:"venue,omitempty"`
	Date        string `json:"date,omitempty"`
	CoverArt    string `json:"coverArt,omitempty"`
	TotalTracks int    `json:"totalTracks"`
}

// ToMetadataJSON generates a JSON representation of show metadata (without tracks)
func ToMetadataJSON(album models.Album) ([]byte, error) {
	return json.MarshalIndent(albumMetadata{
		Identifier:  album.Identifier,
		Title:       album.Title,
		ArtistName:  album.ArtistName,
		Venue:       album.Venue,
		Date:        album.Date,
		CoverArt:    album.CoverArt,
		TotalTracks: album.TotalTracks,
	}, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a show to CSV with an accompanying metadata JSON file.
//
// Defaults to the album identifier as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(album models.Album, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = album.Identifier
	}

	csvData, err := AlbumToCSV(album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(album)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a show to Markdown in a dedicated directory.
//
// Directory name defaults to the album identifier. When the album has cover art it is
// downloaded next to the README; a failed download only drops the image.
func WriteMarkdownExport(album models.Album, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = album.Identifier
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if album.CoverArt != "" {
		imageData, err := DownloadImage(album.CoverArt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := AlbumToMarkdown(album, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteQueueExport renders q in format f to path.
//
// Defaults to queue{ext} as the filename.
func WriteQueueExport(q models.UnifiedQueue, f Format, path string) (string, error) {
	if path == "" {
		path = "queue" + f.Extension()
	}

	data, err := RenderQueue(q, f)
	if err != nil {
		return "", fmt.Errorf("failed to render queue: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write queue file: %w", err)
	}
	return path, nil
}
