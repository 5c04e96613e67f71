package discovery

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/riff-finder/catalog"
	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 30
	MaxLimit     = 50
	MaxSeeds     = 10

	fallbackSearchLimit = 10
)

// CatalogReader is the part of catalog.Client used by discovery.
type CatalogReader interface {
	GetArtists(ctx context.Context, ids []string, userToken string) ([]catalog.Artist, error)
	RelatedArtists(ctx context.Context, id, userToken string) ([]catalog.Artist, error)
	SearchArtists(ctx context.Context, query string, limit int, userToken string) ([]catalog.Artist, error)
	ArtistAlbums(ctx context.Context, id, userToken string) ([]catalog.Album, error)
	AlbumTracks(ctx context.Context, albumID, userToken string) ([]catalog.Track, error)
}

type Service struct {
	catalog CatalogReader
	logger  zerolog.Logger
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(reader CatalogReader, opts ...Option) *Service {
	s := &Service{catalog: reader, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is a finished discovery run.
type Result struct {
	Seeds      []catalog.Artist  `json:"seeds"`
	Candidates []ScoredCandidate `json:"candidates"`
}

// ParseSeeds splits a comma separated id list, dropping blanks and duplicates.
func ParseSeeds(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperrors.BadRequestf("Missing ?seeds=<artist ids>")
	}
	if len(ids) > MaxSeeds {
		return nil, apperrors.BadRequestf("At most %d seeds are allowed", MaxSeeds)
	}
	return ids, nil
}

// NormalizeLimit maps a missing or non-positive limit to DefaultLimit and caps it at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Discover resolves the seeds, gathers candidates for every seed in parallel
// and returns the top ranked candidates.
func (s *Service) Discover(ctx context.Context, seedIDs []string, userToken string, limit int) (Result, error) {
	seeds, err := s.catalog.GetArtists(ctx, seedIDs, userToken)
	if err != nil {
		return Result{}, err
	}
	// the catalog answers null for unknown ids
	resolved := seeds[:0]
	for _, a := range seeds {
		if a.ID != "" {
			resolved = append(resolved, a)
		}
	}
	seeds = resolved
	if len(seeds) == 0 {
		return Result{Seeds: []catalog.Artist{}, Candidates: []ScoredCandidate{}}, nil
	}

	perSeed := make([]SeedCandidates, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range seeds {
		g.Go(func() error {
			candidates, err := s.candidatesFor(gctx, seed, userToken)
			if err != nil {
				return err
			}
			perSeed[i] = SeedCandidates{SeedID: seed.ID, Candidates: candidates}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	scored := Score(seeds, perSeed)
	if n := NormalizeLimit(limit); len(scored) > n {
		scored = scored[:n]
	}
	s.logger.Debug().
		Int("seeds", len(seeds)).
		Int("candidates", len(scored)).
		Msg("discovery run complete")
	return Result{Seeds: seeds, Candidates: scored}, nil
}

func (s *Service) candidatesFor(ctx context.Context, seed catalog.Artist, userToken string) ([]catalog.Artist, error) {
	related, err := s.catalog.RelatedArtists(ctx, seed.ID, userToken)
	if err == nil {
		return related, nil
	}
	if !relatedUnavailable(err) {
		return nil, err
	}

	query := seed.Name
	if len(seed.Genres) > 0 {
		query = seed.Genres[0]
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	s.logger.Debug().Str("seed", seed.ID).Str("query", query).Msg("related artists unavailable, using search")

	found, err := s.catalog.SearchArtists(ctx, query, fallbackSearchLimit, userToken)
	if err != nil {
		return nil, err
	}
	candidates := make([]catalog.Artist, 0, len(found))
	for _, a := range found {
		if a.ID != seed.ID {
			candidates = append(candidates, a)
		}
	}
	sortByGenreOverlap(candidates, seed.Genres)
	return candidates, nil
}

func relatedUnavailable(err error) bool {
	upstreamErr, ok := apperrors.AsUpstream(err)
	return ok && (upstreamErr.Status == http.StatusForbidden || upstreamErr.Status == http.StatusNotFound)
}

func sortByGenreOverlap(artists []catalog.Artist, genres []string) {
	wanted := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		wanted[strings.ToLower(g)] = struct{}{}
	}
	overlap := func(a catalog.Artist) int {
		n := 0
		for _, g := range a.Genres {
			if _, ok := wanted[strings.ToLower(g)]; ok {
				n++
			}
		}
		return n
	}
	sort.SliceStable(artists, func(i, j int) bool {
		return overlap(artists[i]) > overlap(artists[j])
	})
}
