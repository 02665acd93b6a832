package catalog

import (
	"fmt"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// formats maps archive file formats to stream tiers.
var formats = map[string]models.Quality{
	"Flac":       models.QualityHigh,
	"24bit Flac": models.QualityHigh,
	"VBR MP3":    models.QualityMedium,
	"64Kbps MP3": models.QualityLow,
}

// derivative suffixes the archive appends to file names of lower tiers.
var derivativeSuffixes = []string{"_vbr", "_64kb"}

// part collects every tier of one recorded track.
type part struct {
	key    string
	title  string
	track  int
	length float64
	urls   map[models.Quality]string
	order  int
}

// Parse builds an album from an archive metadata document. baseURL is the
// archive host used for download links.
func Parse(identifier string, body []byte, baseURL string) (*models.Album, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid metadata json for %s", shared.ErrCatalog, identifier)
	}
	doc := gjson.ParseBytes(body)
	meta := doc.Get("metadata")
	if !meta.Exists() {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, identifier)
	}
	if id := first(meta.Get("identifier")); id != "" {
		identifier = id
	}

	parts := collectParts(doc.Get("files"), baseURL, identifier)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrNothingPlayable, identifier)
	}

	ratings := lo.Map(doc.Get("reviews").Array(), func(r gjson.Result, _ int) float64 {
		return r.Get("stars").Float()
	})
	avg := 0.0
	if len(ratings) > 0 {
		avg = lo.Sum(ratings) / float64(len(ratings))
	}

	restricted := doc.Get("is_dark").Bool() || strings.EqualFold(first(meta.Get("access-restricted-item")), "true")
	reason := ""
	if restricted {
		reason = "restricted by the archive"
	}

	album := &models.Album{
		Identifier: identifier,
		Title:      first(meta.Get("title")),
		ArtistName: first(meta.Get("creator")),
		Venue:      first(meta.Get("venue")),
		Date:       first(meta.Get("date")),
		CoverArt:   strings.TrimRight(baseURL, "/") + "/services/img/" + identifier,
	}

	for _, p := range parts {
		song := models.Song{
			ID:                identifier + "/" + p.key,
			Title:             p.title,
			TrackTitle:        p.title,
			ArtistName:        album.ArtistName,
			AlbumName:         album.Title,
			AlbumIdentifier:   identifier,
			Venue:             album.Venue,
			Date:              album.Date,
			Duration:          p.length,
			StreamURL:         lo.CoalesceOrEmpty(p.urls[models.QualityMedium], p.urls[models.QualityLow], p.urls[models.QualityHigh]),
			QualityURLs:       p.urls,
			Taper:             first(meta.Get("taper")),
			Source:            first(meta.Get("source")),
			Lineage:           first(meta.Get("lineage")),
			IsStreamable:      !restricted,
			RestrictionReason: reason,
			AvgRating:         avg,
			NumReviews:        len(ratings),
		}
		album.Tracks = append(album.Tracks, models.NewTrack(p.title, song))
	}
	album.TotalTracks = len(album.Tracks)
	return album, nil
}

func collectParts(files gjson.Result, baseURL, identifier string) []*part {
	byKey := make(map[string]*part)
	var parts []*part

	files.ForEach(func(_, f gjson.Result) bool {
		tier, ok := formats[f.Get("format").String()]
		if !ok {
			return true
		}
		name := f.Get("name").String()
		key := baseKey(name)

		p := byKey[key]
		if p == nil {
			p = &part{key: key, urls: make(map[models.Quality]string), order: len(parts)}
			byKey[key] = p
			parts = append(parts, p)
		}
		p.urls[tier] = downloadURL(baseURL, identifier, name)
		if p.title == "" {
			p.title = strings.TrimSpace(f.Get("title").String())
		}
		if p.track == 0 {
			p.track = trackNumber(f.Get("track").String())
		}
		if p.length == 0 {
			p.length = parseLength(f.Get("length").String())
		}
		return true
	})

	for _, p := range parts {
		if p.title == "" {
			p.title = p.key
		}
	}

	slices.SortStableFunc(parts, func(a, b *part) int {
		switch {
		case a.track != 0 && b.track != 0 && a.track != b.track:
			return a.track - b.track
		case a.track != 0 && b.track == 0:
			return -1
		case a.track == 0 && b.track != 0:
			return 1
		}
		return a.order - b.order
	})
	return parts
}

// baseKey strips the extension and derivative suffix, so every tier of a
// recorded track shares one key.
func baseKey(name string) string {
	key := strings.TrimSuffix(path.Base(name), path.Ext(name))
	for _, s := range derivativeSuffixes {
		key = strings.TrimSuffix(key, s)
	}
	return key
}

func downloadURL(baseURL, identifier, name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/download/" + url.PathEscape(identifier) + "/" + strings.Join(segments, "/")
}

// first returns a metadata value as a string. The archive stores repeated
// fields as arrays; the first element wins.
func first(r gjson.Result) string {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return ""
		}
		return strings.TrimSpace(arr[0].String())
	}
	return strings.TrimSpace(r.String())
}

// trackNumber parses "5", "05" and "5/12".
func trackNumber(s string) int {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseLength parses "361.23", "6:01" and "1:02:03" into seconds.
func parseLength(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}

	total := 0.0
	for _, field := range strings.Split(s, ":") {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0
		}
		total = total*60 + v
	}
	return total
}
