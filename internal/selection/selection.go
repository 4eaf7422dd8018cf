// Package selection records each participant's picks exactly once and
// computes the group's agreement set.
package selection

import (
	"context"
	"sort"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/store"
)

// Option is one candidate entry in a session's catalog. The catalog is
// supplied by the transport (place search happens outside the engine) and
// is what submissions are validated against.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OverlapResult is the outcome of a completed round.
type OverlapResult struct {
	OverlappingIDs []string            `json:"overlappingIds"`
	Overlapping    []Option            `json:"overlapping"`
	AllSelections  map[string][]Option `json:"allSelections"`
	HasOverlap     bool                `json:"hasOverlap"`
}

type Store struct {
	store store.Store
}

func NewStore(st store.Store) *Store {
	return &Store{store: st}
}

// SetOptions replaces the session's candidate catalog.
func (s *Store) SetOptions(ctx context.Context, code string, options []Option) error {
	if err := s.store.Del(ctx, store.OptionsKey(code)); err != nil {
		return apperr.Internal(err)
	}
	fields := make(map[string]string, len(options))
	for _, opt := range options {
		fields[opt.ID] = opt.Name
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.HSetAll(ctx, store.OptionsKey(code), fields); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Options returns the session's catalog sorted by id.
func (s *Store) Options(ctx context.Context, code string) ([]Option, error) {
	catalog, err := s.store.HGetAll(ctx, store.OptionsKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.resolveOptions(catalog, ids), nil
}

// Submit stores a participant's picks. Submission is write-once: a second
// call is a conflict, never a silent overwrite, because the privacy
// guarantee leans on the first submission being final. Storing the set and
// flipping the hasSubmitted flag are one logical commit; callers serialize
// per session.
func (s *Store) Submit(ctx context.Context, code, id string, optionIDs []string) error {
	catalog, err := s.store.HGetAll(ctx, store.OptionsKey(code))
	if err != nil {
		return apperr.Internal(err)
	}
	for _, optID := range optionIDs {
		if _, ok := catalog[optID]; !ok {
			return apperr.Validation("invalid_options", "selection contains options not in this session")
		}
	}

	count, err := s.store.SCard(ctx, store.SelectionsKey(code, id))
	if err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return apperr.Conflict("already_submitted", "selections were already submitted for this round")
	}

	if err := s.store.SAdd(ctx, store.SelectionsKey(code, id), optionIDs...); err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.HSet(ctx, store.ParticipantKey(code, id), "hasSubmitted", "1"); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Store) HasSubmitted(ctx context.Context, code, id string) (bool, error) {
	count, err := s.store.SCard(ctx, store.SelectionsKey(code, id))
	if err != nil {
		return false, apperr.Internal(err)
	}
	return count > 0, nil
}

// SubmittedCount counts members with a non-empty selection set.
func (s *Store) SubmittedCount(ctx context.Context, code string, memberIDs []string) (int, error) {
	submitted := 0
	for _, id := range memberIDs {
		has, err := s.HasSubmitted(ctx, code, id)
		if err != nil {
			return 0, err
		}
		if has {
			submitted++
		}
	}
	return submitted, nil
}

func (s *Store) Selections(ctx context.Context, code, id string) ([]string, error) {
	ids, err := s.store.SMembers(ctx, store.SelectionsKey(code, id))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ids, nil
}

// AllSelections returns every member's raw selection ids keyed by
// participant id. Callers must only expose this after the round completes.
func (s *Store) AllSelections(ctx context.Context, code string, memberIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(memberIDs))
	for _, id := range memberIDs {
		sel, err := s.Selections(ctx, code, id)
		if err != nil {
			return nil, err
		}
		out[id] = sel
	}
	return out, nil
}

// Clear wipes the given members' selection sets, resets their hasSubmitted
// flags and removes any stored results, so a restarted round cannot leak
// stale agreement data.
func (s *Store) Clear(ctx context.Context, code string, memberIDs []string) error {
	keys := []string{store.ResultsKey(code)}
	for _, id := range memberIDs {
		keys = append(keys, store.SelectionsKey(code, id))
	}
	if err := s.store.Del(ctx, keys...); err != nil {
		return apperr.Internal(err)
	}
	for _, id := range memberIDs {
		if err := s.store.HSet(ctx, store.ParticipantKey(code, id), "hasSubmitted", "0"); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

// resolveOptions maps option ids to catalog entries. Ids that no longer
// resolve are dropped silently; the catalog can expire independently and a
// tombstoned entry must not fail the round.
func (s *Store) resolveOptions(catalog map[string]string, ids []string) []Option {
	out := make([]Option, 0, len(ids))
	for _, id := range ids {
		name, ok := catalog[id]
		if !ok {
			continue
		}
		out = append(out, Option{ID: id, Name: name})
	}
	return out
}

// CalculateOverlap computes the agreement set. A lone participant trivially
// agrees with themself, so their full selection is the overlap; with two or
// more participants it is the intersection across every selection set.
// names maps participant id to display name for the per-participant view.
func (s *Store) CalculateOverlap(ctx context.Context, code string, names map[string]string) (*OverlapResult, error) {
	memberIDs := make([]string, 0, len(names))
	for id := range names {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)

	var overlapping []string
	var err error
	switch len(memberIDs) {
	case 0:
		overlapping = nil
	case 1:
		overlapping, err = s.Selections(ctx, code, memberIDs[0])
	default:
		keys := make([]string, len(memberIDs))
		for i, id := range memberIDs {
			keys[i] = store.SelectionsKey(code, id)
		}
		overlapping, err = s.store.SInter(ctx, keys...)
		if err != nil {
			err = apperr.Internal(err)
		}
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(overlapping)

	catalog, err := s.store.HGetAll(ctx, store.OptionsKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	all := make(map[string][]Option, len(memberIDs))
	for _, id := range memberIDs {
		sel, err := s.Selections(ctx, code, id)
		if err != nil {
			return nil, err
		}
		sort.Strings(sel)
		all[names[id]] = s.resolveOptions(catalog, sel)
	}

	return &OverlapResult{
		OverlappingIDs: overlapping,
		Overlapping:    s.resolveOptions(catalog, overlapping),
		AllSelections:  all,
		HasOverlap:     len(overlapping) > 0,
	}, nil
}

// SaveResults persists the overlapping ids so late reconnects can re-fetch
// the outcome of a completed round.
func (s *Store) SaveResults(ctx context.Context, code string, overlappingIDs []string) error {
	if err := s.store.Del(ctx, store.ResultsKey(code)); err != nil {
		return apperr.Internal(err)
	}
	if len(overlappingIDs) == 0 {
		return nil
	}
	if err := s.store.SAdd(ctx, store.ResultsKey(code), overlappingIDs...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Results returns the stored outcome mapped through the catalog.
func (s *Store) Results(ctx context.Context, code string) ([]Option, error) {
	ids, err := s.store.SMembers(ctx, store.ResultsKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.Strings(ids)
	catalog, err := s.store.HGetAll(ctx, store.OptionsKey(code))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.resolveOptions(catalog, ids), nil
}
