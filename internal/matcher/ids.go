package matcher

import (
	"regexp"
	"strings"

	"github.com/desertthunder/removarr/internal/models"
)

var (
	directForm = regexp.MustCompile(`^(tmdb|tvdb|imdb)://(.+)$`)
	agentForm  = regexp.MustCompile(`^com\.[a-z0-9_-]+\.agents\.(themoviedb|thetvdb)://(\d+)`)
	imdbAgent  = regexp.MustCompile(`^com\.[a-z0-9_-]+\.agents\.imdb://(tt\d+)`)
)

var agentProviders = map[string]models.Provider{
	"themoviedb": models.ProviderTMDB,
	"thetvdb":    models.ProviderTVDB,
}

// ExtractIDs maps raw identifier strings to provider ids.
// Unrecognized strings are ignored and the last value seen for a provider wins.
func ExtractIDs(raw []string) models.IDs {
	ids, _ := ExtractIDsWithUnknown(raw)
	return ids
}

// ExtractIDsWithUnknown is [ExtractIDs] that also returns the strings it could not parse,
// so callers can log them.
func ExtractIDsWithUnknown(raw []string) (models.IDs, []string) {
	ids := models.IDs{}
	var unknown []string

	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		if m := directForm.FindStringSubmatch(s); m != nil {
			ids[models.Provider(m[1])] = m[2]
			continue
		}
		if m := agentForm.FindStringSubmatch(s); m != nil {
			ids[agentProviders[m[1]]] = m[2]
			continue
		}
		if m := imdbAgent.FindStringSubmatch(s); m != nil {
			ids[models.ProviderIMDB] = m[1]
			continue
		}
		unknown = append(unknown, s)
	}

	return ids, unknown
}

// Canonical renders ids in the direct "<provider>://<id>" form, ordered tmdb, tvdb, imdb.
// Extracting the result again yields an equal map.
func Canonical(ids models.IDs) []string {
	out := make([]string, 0, len(ids))
	for _, p := range []models.Provider{models.ProviderTMDB, models.ProviderTVDB, models.ProviderIMDB} {
		if v, ok := ids[p]; ok {
			out = append(out, string(p)+"://"+v)
		}
	}
	return out
}
