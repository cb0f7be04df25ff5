// Package leaderboard ranks the classroom by pet strength.
// Students without a pet are listed last so everyone still appears on the wall.
package leaderboard

import (
	"cmp"
	"slices"

	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// NoPetScore is the score of a student who has not adopted yet.
const NoPetScore = -1

// Entry is one row of the leaderboard.
type Entry struct {
	Rank    shared.Rank
	Student *student.Student
	Pet     *pet.Pet
	Score   int
}

// HasPet reports whether the student has adopted.
func (e Entry) HasPet() bool {
	return e.Pet != nil
}

// Badge returns the podium badge; only students with a pet earn one.
func (e Entry) Badge() string {
	if !e.HasPet() {
		return ""
	}
	return e.Rank.Medal()
}

// Score is points + age (stage + 1) + food, or NoPetScore without a pet.
func Score(p *pet.Pet) int {
	if p == nil {
		return NoPetScore
	}
	return p.Points + p.Age() + p.Food
}

// Rank orders students with a pet by descending score, then everyone
// without one. A pet in debt can score below NoPetScore and still ranks
// above them. Ties keep roster insertion order, which is the order of
// students.
func Rank(students []*student.Student, pets map[string]*pet.Pet) []Entry {
	entries := make([]Entry, len(students))
	for i, s := range students {
		p := pets[s.ID]
		entries[i] = Entry{Student: s, Pet: p, Score: Score(p)}
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.HasPet() != b.HasPet() {
			if a.HasPet() {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Score, a.Score)
	})

	for i := range entries {
		entries[i].Rank = shared.Rank(i + 1)
	}
	return entries
}

// Top returns at most n leading entries.
func Top(entries []Entry, n int) []Entry {
	if n < 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
