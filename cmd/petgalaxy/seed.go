package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER FILE
// ══════════════════════════════════════════════════════════════════════════════

// Roster is the YAML seed format:
//
//	className: Class 3B
//	petPacks:
//	  - name: Dragons
//	    images: [d0.png, d1.png, ...]
//	presets:
//	  - label: Tidy desk
//	    amount: 3
//	students:
//	  - name: Lina
//	    avatar: lina.png
//	    gender: girl
//	    pet:
//	      name: Bun
//	      pack: Dragons
//	      points: 12
type Roster struct {
	ClassName string          `yaml:"className"`
	PetPacks  []RosterPack    `yaml:"petPacks"`
	Presets   []RosterPreset  `yaml:"presets"`
	Students  []RosterStudent `yaml:"students"`
}

// RosterPack is an image pack declared in a roster.
type RosterPack struct {
	Name   string   `yaml:"name"`
	Images []string `yaml:"images"`
}

// RosterPreset is a point preset declared in a roster.
type RosterPreset struct {
	Label  string `yaml:"label"`
	Amount int    `yaml:"amount"`
}

// RosterStudent is one student, optionally with a pet.
type RosterStudent struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Avatar string     `yaml:"avatar"`
	Gender string     `yaml:"gender"`
	Pet    *RosterPet `yaml:"pet"`
}

// RosterPet adopts a pet from inline images or a named pack, then awards
// Points on top of the adoption bonus.
type RosterPet struct {
	Name   string   `yaml:"name"`
	Pack   string   `yaml:"pack"`
	Images []string `yaml:"images"`
	Points int      `yaml:"points"`
}

// ParseRoster decodes a roster document.
func ParseRoster(r io.Reader) (*Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return &roster, nil
}

// Dispatcher applies classroom messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg classroom.Msg) (classroom.Result, error)
}

// SeedSummary counts what a roster added.
type SeedSummary struct {
	Students int
	Pets     int
	Packs    int
	Presets  int
}

// Apply dispatches the roster in file order. It stops at the first rejected
// entry; everything before it stays applied.
func (r *Roster) Apply(ctx context.Context, d Dispatcher) (SeedSummary, error) {
	var sum SeedSummary

	if r.ClassName != "" {
		if _, err := d.Dispatch(ctx, classroom.RenameClass{Name: r.ClassName}); err != nil {
			return sum, fmt.Errorf("class name: %w", err)
		}
	}

	packs := make(map[string]string, len(r.PetPacks))
	for _, p := range r.PetPacks {
		res, err := d.Dispatch(ctx, classroom.AddPetImagePack{Name: p.Name, Images: p.Images})
		if err != nil {
			return sum, fmt.Errorf("pet pack %q: %w", p.Name, err)
		}
		packs[p.Name] = res.SubjectID
		sum.Packs++
	}

	for _, p := range r.Presets {
		if _, err := d.Dispatch(ctx, classroom.AddPointPreset{Label: p.Label, Amount: p.Amount}); err != nil {
			return sum, fmt.Errorf("preset %q: %w", p.Label, err)
		}
		sum.Presets++
	}

	for _, s := range r.Students {
		res, err := d.Dispatch(ctx, classroom.AddStudent{
			ID:     s.ID,
			Name:   s.Name,
			Avatar: s.Avatar,
			Gender: student.Gender(s.Gender),
		})
		if err != nil {
			return sum, fmt.Errorf("student %q: %w", s.Name, err)
		}
		sum.Students++

		if s.Pet == nil {
			continue
		}
		id := res.SubjectID
		adopt := classroom.AdoptPet{StudentID: id, PetName: s.Pet.Name, Images: s.Pet.Images}
		if s.Pet.Pack != "" {
			packID, ok := packs[s.Pet.Pack]
			if !ok {
				return sum, fmt.Errorf("student %q: unknown pet pack %q", s.Name, s.Pet.Pack)
			}
			adopt.PackID = packID
		}
		if _, err := d.Dispatch(ctx, adopt); err != nil {
			return sum, fmt.Errorf("pet of %q: %w", s.Name, err)
		}
		sum.Pets++

		if s.Pet.Points != 0 {
			if _, err := d.Dispatch(ctx, classroom.GivePoints{StudentID: id, Amount: s.Pet.Points, Reason: "seeded"}); err != nil {
				return sum, fmt.Errorf("points of %q: %w", s.Name, err)
			}
		}
	}
	return sum, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SEED COMMAND
// ══════════════════════════════════════════════════════════════════════════════

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <roster.yaml>",
		Short: "Load students, pets and presets from a YAML roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			roster, err := ParseRoster(f)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := setupLogger(cfg)
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			room, st, err := openClassroom(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sum, err := roster.Apply(ctx, room)
			log.Info("roster seeded",
				logger.String("file", args[0]),
				logger.Int("students", sum.Students),
				logger.Int("pets", sum.Pets),
				logger.Int("packs", sum.Packs),
				logger.Int("presets", sum.Presets),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d students, %d pets, %d packs, %d presets\n",
				sum.Students, sum.Pets, sum.Packs, sum.Presets)
			return nil
		},
	}
}
