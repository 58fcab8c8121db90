// Package matcher locates an import event's title inside a Plex watchlist.
//
// Three pure pieces cooperate:
//
//   - [ExtractIDs] parses raw guid strings ("tmdb://603", legacy
//     "com.plexapp.agents.themoviedb://603?lang=en") into a [models.IDs] map.
//   - [NormalizeTitle] canonicalizes titles for the fallback comparison.
//   - [Match] tries the tmdb and tvdb rules across the whole watchlist first,
//     and only then falls back to normalized title and year. Within a rule the
//     first entry in listing order wins.
//
// Nothing here performs I/O.
package matcher
