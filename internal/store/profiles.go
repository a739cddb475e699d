package store

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ppiankov/leadmaster/internal/model"
)

// signalUpdateColumns are refreshed when a (company, headline) pair is seen
// again; read_flag is left alone
var signalUpdateColumns = []string{"url", "date", "source_label", "land_flag", "sector_guess", "relevance", "lat", "lon"}

// UpsertCompanyGroup writes one company profile and its signals in a single
// transaction. A new profile starts in status New; an existing profile keeps
// its status while summary, tags, coordinates and flags are refreshed.
// Signals are upserted on (company, headline). It returns the number of
// signals written.
func (s *Store) UpsertCompanyGroup(ctx context.Context, client model.Client, signals []model.Signal) (int, error) {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return 0, eris.New("store: company name is empty")
	}

	rows := make([]model.Signal, 0, len(signals))
	seen := make(map[string]bool)
	for _, sig := range signals {
		sig.ID = 0
		sig.Company = client.Name
		sig.Headline = strings.TrimSpace(sig.Headline)
		sig.ReadFlag = false
		if sig.Headline == "" || seen[sig.Headline] {
			continue
		}
		seen[sig.Headline] = true
		rows = append(rows, sig)
	}

	err := s.write(ctx, "upsert company group", func(tx *gorm.DB) error {
		var existing model.Client
		err := tx.Where("name = ?", client.Name).Take(&existing).Error
		switch {
		case eris.Is(err, gorm.ErrRecordNotFound):
			client.Status = model.StatusNew
			client.SectorTags = mergeTags(nil, client.SectorTags)
			if err := tx.Create(&client).Error; err != nil {
				return eris.Wrap(err, "insert client")
			}
		case err != nil:
			return eris.Wrap(err, "load client")
		default:
			updates := map[string]any{
				"summary":     client.Summary,
				"sector_tags": mergeTags(existing.SectorTags, client.SectorTags),
				"confidence":  client.Confidence,
				"land_flag":   existing.LandFlag || client.LandFlag,
			}
			if client.Lat != nil && client.Lon != nil {
				updates["lat"] = *client.Lat
				updates["lon"] = *client.Lon
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return eris.Wrap(err, "update client")
			}
		}

		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ID = 0
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company"}, {Name: "headline"}},
			DoUpdates: clause.AssignmentColumns(signalUpdateColumns),
		}).Create(&rows).Error
		return eris.Wrap(err, "upsert signals")
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// mergeTags unions tag lists case-insensitively, keeping first spelling, sorted
func mergeTags(a, b datatypes.JSONSlice[string]) datatypes.JSONSlice[string] {
	seen := make(map[string]bool)
	out := datatypes.JSONSlice[string]{}
	for _, list := range []datatypes.JSONSlice[string]{a, b} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// ClientFilter narrows ListClients
type ClientFilter struct {
	Sector string       // case-insensitive sector tag
	Status model.Status // exact status
	Limit  int
}

// ListClients returns profiles, most recently updated first
func (s *Store) ListClients(ctx context.Context, f ClientFilter) ([]model.Client, error) {
	q := s.db.WithContext(ctx).Order("updated_at DESC").Order("name")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var clients []model.Client
	if err := q.Find(&clients).Error; err != nil {
		return nil, eris.Wrap(err, "store: list clients")
	}

	if f.Sector != "" {
		filtered := clients[:0]
		for _, c := range clients {
			for _, tag := range c.SectorTags {
				if strings.EqualFold(tag, f.Sector) {
					filtered = append(filtered, c)
					break
				}
			}
		}
		clients = filtered
	}

	if f.Limit > 0 && len(clients) > f.Limit {
		clients = clients[:f.Limit]
	}
	return clients, nil
}

// GetClient loads one profile by name
func (s *Store) GetClient(ctx context.Context, name string) (*model.Client, error) {
	var c model.Client
	err := s.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).Take(&c).Error
	if eris.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get client")
	}
	return &c, nil
}

// SetStatus moves a profile along New -> Contacted -> Proposal -> Won/Lost.
// Only user actions call this; ingestion never changes status.
func (s *Store) SetStatus(ctx context.Context, name string, next model.Status) error {
	if !next.Valid() {
		return eris.Wrapf(ErrInvalidTransition, "unknown status %q", next)
	}

	return s.write(ctx, "set status", func(tx *gorm.DB) error {
		var c model.Client
		err := tx.Where("name = ?", strings.TrimSpace(name)).Take(&c).Error
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return eris.Wrap(err, "load client")
		}
		if !c.Status.CanTransition(next) {
			return eris.Wrapf(ErrInvalidTransition, "%s -> %s", c.Status, next)
		}
		return tx.Model(&c).Update("status", next).Error
	})
}
