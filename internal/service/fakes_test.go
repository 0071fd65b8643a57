package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
	"github.com/iliyamo/snapscape/internal/repository"
)

type fakeCompetitions struct {
	mu       sync.Mutex
	byID     map[uint64]model.Competition
	nextID   uint64
	writes   int
	failIDs  map[uint64]error
	archived []uint64
}

func newFakeCompetitions(cs ...model.Competition) *fakeCompetitions {
	f := &fakeCompetitions{byID: map[uint64]model.Competition{}, failIDs: map[uint64]error{}}
	for _, c := range cs {
		f.byID[c.ID] = c
		if c.ID > f.nextID {
			f.nextID = c.ID
		}
	}
	return f
}

func (f *fakeCompetitions) Create(_ context.Context, c *model.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeCompetitions) Update(_ context.Context, c *model.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeCompetitions) GetByID(_ context.Context, id uint64) (model.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return model.Competition{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCompetitions) sorted() []model.Competition {
	out := make([]model.Competition, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeCompetitions) List(_ context.Context, status model.CompetitionStatus, includeDrafts bool) ([]model.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Competition{}
	for _, c := range f.sorted() {
		if status != "" && c.Status != status {
			continue
		}
		if c.Status == model.StatusDraft && !includeDrafts {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCompetitions) ListForStatusUpdate(_ context.Context, includeOverridden bool) ([]model.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Competition{}
	for _, c := range f.sorted() {
		if c.Status == model.StatusArchived || c.Status == model.StatusDraft {
			continue
		}
		if c.StatusOverride && !includeOverridden {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCompetitions) UpdateStatus(_ context.Context, id uint64, from, to model.CompetitionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return err
	}
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.Status != from {
		return repository.ErrStaleStatus
	}
	c.Status = to
	f.byID[id] = c
	f.writes++
	return nil
}

func (f *fakeCompetitions) SetStatus(_ context.Context, id uint64, status model.CompetitionStatus, override bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status, c.StatusOverride = status, override
	f.byID[id] = c
	f.writes++
	return nil
}

func (f *fakeCompetitions) ArchiveSubmissions(_ context.Context, id uint64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeCompetitions) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return err
	}
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeSubmissions also plays the rating store so that aggregates written by
// Upsert are visible through GetByID, as they are in MySQL.
type fakeSubmissions struct {
	mu         sync.Mutex
	byID       map[uint64]model.PhotoSubmission
	authors    map[uint64]string
	nextID     uint64
	ratings    []model.Rating
	deleted    []uint64
	failCreate error
	// comps, when set, supplies competition status for vote checks.
	comps *fakeCompetitions
}

func newFakeSubmissions(ps ...model.PhotoSubmission) *fakeSubmissions {
	f := &fakeSubmissions{byID: map[uint64]model.PhotoSubmission{}, authors: map[uint64]string{}}
	for _, p := range ps {
		f.byID[p.ID] = p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeSubmissions) Create(_ context.Context, p *model.PhotoSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	p.ID = f.nextID
	p.Status = model.SubmissionPending
	f.byID[p.ID] = *p
	return nil
}

func (f *fakeSubmissions) GetByID(_ context.Context, id uint64) (model.PhotoSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return model.PhotoSubmission{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeSubmissions) ListApprovedWithAuthors(_ context.Context, competitionID uint64) ([]model.AuthoredSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.AuthoredSubmission{}
	for _, p := range f.byID {
		if p.CompetitionID == competitionID && p.Status == model.SubmissionApproved {
			out = append(out, model.AuthoredSubmission{PhotoSubmission: p, AuthorName: f.authors[p.UserID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSubmissions) ListByUser(_ context.Context, userID uint64) ([]model.PhotoSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.PhotoSubmission{}
	for _, p := range f.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) CountByUserAndCompetition(_ context.Context, userID, competitionID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.byID {
		if p.UserID == userID && p.CompetitionID == competitionID && p.Status != model.SubmissionRejected {
			n++
		}
	}
	return n, nil
}

func (f *fakeSubmissions) UpdateStatus(_ context.Context, id uint64, status model.SubmissionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	f.byID[id] = p
	return nil
}

func (f *fakeSubmissions) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSubmissions) recompute(photoID uint64) model.RatingAggregate {
	count, sum := 0, 0
	for _, r := range f.ratings {
		if r.PhotoID == photoID {
			count++
			sum += r.Score
		}
	}
	agg := model.NewRatingAggregate(count, sum)
	p := f.byID[photoID]
	p.RatingsCount, p.TotalRatingSum, p.AverageRating = agg.RatingsCount, agg.TotalRatingSum, agg.AverageRating
	f.byID[photoID] = p
	return agg
}

func (f *fakeSubmissions) Upsert(_ context.Context, userID, photoID uint64, score int) (model.RatingAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[photoID]
	if !ok {
		return model.RatingAggregate{}, repository.ErrNotFound
	}
	if p.UserID == userID {
		return model.RatingAggregate{}, repository.ErrOwnPhoto
	}
	if p.Status != model.SubmissionApproved {
		return model.RatingAggregate{}, repository.ErrPhotoNotApproved
	}
	if f.comps != nil {
		c, err := f.comps.GetByID(context.Background(), p.CompetitionID)
		if err != nil {
			return model.RatingAggregate{}, err
		}
		if c.Status != model.StatusVoting {
			return model.RatingAggregate{}, repository.ErrVotingClosed
		}
	}
	found := false
	for i, r := range f.ratings {
		if r.UserID == userID && r.PhotoID == photoID {
			f.ratings[i].Score = score
			found = true
			break
		}
	}
	if !found {
		f.ratings = append(f.ratings, model.Rating{ID: uint64(len(f.ratings) + 1), UserID: userID, PhotoID: photoID, Score: score})
	}
	return f.recompute(photoID), nil
}

func (f *fakeSubmissions) GetScore(_ context.Context, userID, photoID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.ratings {
		if r.UserID == userID && r.PhotoID == photoID {
			return r.Score, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeSubmissions) ListDuplicated(context.Context) ([]model.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type pair struct{ u, p uint64 }
	counts := map[pair]int{}
	for _, r := range f.ratings {
		counts[pair{r.UserID, r.PhotoID}]++
	}
	var out []model.Rating
	for _, r := range f.ratings {
		if counts[pair{r.UserID, r.PhotoID}] > 1 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSubmissions) DeleteAndRecompute(_ context.Context, ratingIDs, photoIDs []uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[uint64]bool{}
	for _, id := range ratingIDs {
		drop[id] = true
	}
	kept := f.ratings[:0]
	var n int64
	for _, r := range f.ratings {
		if drop[r.ID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.ratings = kept
	for _, pid := range photoIDs {
		f.recompute(pid)
	}
	return n, nil
}

func (f *fakeSubmissions) RecomputeAll(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.byID {
		f.recompute(id)
	}
	return int64(len(f.byID)), nil
}

type fakeResults struct {
	byComp map[uint64][]model.Result
}

func (f *fakeResults) Replace(_ context.Context, competitionID uint64, results []model.Result) error {
	if f.byComp == nil {
		f.byComp = map[uint64][]model.Result{}
	}
	f.byComp[competitionID] = results
	return nil
}

func (f *fakeResults) ListByCompetition(_ context.Context, competitionID uint64) ([]model.Result, error) {
	return f.byComp[competitionID], nil
}

type recordingPublisher struct {
	events []queue.NotificationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.NotificationEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type fakeImages struct {
	uploads []string
	removed []string
	failPut error
}

func (f *fakeImages) Upload(_ context.Context, prefix string, data []byte, contentType string) (StoredImage, error) {
	if f.failPut != nil {
		return StoredImage{}, f.failPut
	}
	key := prefix + "/img.jpg"
	f.uploads = append(f.uploads, key)
	return StoredImage{Key: key, URL: "http://cdn/" + key, ThumbnailURL: "http://cdn/thumbs/" + key}, nil
}

func (f *fakeImages) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
