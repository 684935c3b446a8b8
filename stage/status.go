package stage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// Entry is one published target in the staging area.
type Entry struct {
	ID     asset.ID    `json:"id"`
	Path   string      `json:"path"`
	State  TargetState `json:"-"`
	Kind   string      `json:"state"`
	Source string      `json:"source,omitempty"`
}

func newEntry(id asset.ID, path string, state TargetState) Entry {
	return Entry{ID: id, Path: path, State: state, Kind: state.Kind.String(), Source: state.Source}
}

// Status reports the targets for ids, or every target in the staging area when
// ids is empty. Lock files are not targets. A missing staging area has no entries.
func (p *Publisher) Status(ids ...asset.ID) ([]Entry, error) {
	stagingArea := p.StagingArea()

	if len(ids) > 0 {
		entries := make([]Entry, 0, len(ids))
		for _, id := range ids {
			if err := id.Validate(); err != nil {
				return nil, err
			}
			path := p.Target(id)
			state, err := InspectTarget(path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, newEntry(id, path, state))
		}
		return entries, nil
	}

	dirents, err := os.ReadDir(stagingArea)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list staging area %s", stagingArea)
	}

	var entries []Entry
	for _, d := range dirents {
		if strings.HasSuffix(d.Name(), ".lock") {
			continue
		}
		path := filepath.Join(stagingArea, d.Name())
		state, err := InspectTarget(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, newEntry(asset.ID(d.Name()), path, state))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// Unpublish removes the target for id under the id's lock. The source directory of
// a linked target is left alone. Unpublishing an absent target is a no-op.
func (p *Publisher) Unpublish(ctx context.Context, id asset.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	stagingArea := p.StagingArea()
	if _, err := os.Stat(stagingArea); os.IsNotExist(err) {
		return nil
	}

	target := p.Target(id)
	log := logger.LoggerFromContext(logger.WithAssetID(ctx, string(id)), p.logger)

	err := WithLock(ctx, LockPath(stagingArea, id), func() error {
		current, err := InspectTarget(target)
		if err != nil {
			return err
		}

		var plan Plan
		switch current.Kind {
		case TargetLinked:
			plan.Actions = []Action{{Kind: ActionRemoveLink}}
		case TargetCopied:
			plan.Actions = []Action{{Kind: ActionRemoveTree}}
		default:
			return nil
		}

		log.Infow("Unpublishing asset", logger.FieldTarget, target, logger.FieldState, current.String())
		return ApplyPlan(target, "", plan)
	})
	if err != nil {
		return errors.Wrapf(err, "unpublish %s", id)
	}
	return nil
}
