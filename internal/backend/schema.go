// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

package backend

import (
	"slices"

	"github.com/phiona/phiona/internal/apperr"
)

// Table names.
const (
	TableProfiles      = "profiles"
	TableCompetitions  = "competitions"
	TableParticipants  = "competition_participants"
	TableRegistrations = "registered_hackathons"
)

// Table describes the columns and constraints of a stored table. Adapters
// use it to reject unknown columns and, where the store has no database of
// its own, to enforce the constraints.
type Table struct {
	Name    string
	Columns []string
	// Required columns must be present and non-empty on insert.
	Required []string
	// Unique lists column groups that must be unique across rows.
	Unique [][]string
	// References maps a column to the table whose id it must name.
	References map[string]string
	// Checks restricts a column to a set of values.
	Checks map[string][]string
	// ClientID means the caller supplies the id column.
	ClientID bool
}

// HasColumn reports whether col exists in the table.
func (t Table) HasColumn(col string) bool {
	return col == "id" || col == "created_at" || slices.Contains(t.Columns, col)
}

// Tables is the schema of every table the portal uses.
var Tables = map[string]Table{
	TableProfiles: {
		Name:     TableProfiles,
		Columns:  []string{"username", "full_name", "bio", "avatar_url", "location", "updated_at"},
		Required: []string{"username"},
		ClientID: true,
	},
	TableCompetitions: {
		Name: TableCompetitions,
		Columns: []string{
			"title", "description", "category", "status", "prize_amount",
			"participant_count", "start_date", "end_date",
		},
		Required: []string{"title", "category"},
		Checks:   map[string][]string{"status": {"upcoming", "active", "ended"}},
	},
	TableParticipants: {
		Name:       TableParticipants,
		Columns:    []string{"user_id", "competition_id", "joined_at"},
		Required:   []string{"user_id", "competition_id"},
		Unique:     [][]string{{"user_id", "competition_id"}},
		References: map[string]string{"user_id": TableProfiles, "competition_id": TableCompetitions},
	},
	TableRegistrations: {
		Name: TableRegistrations,
		Columns: []string{
			"user_id", "hackathon_name", "full_name", "email", "university", "skillset",
			"experience", "project_interest", "registration_status", "registration_timestamp",
		},
		Required:   []string{"user_id", "hackathon_name", "full_name", "email", "university", "skillset", "experience"},
		Unique:     [][]string{{"user_id", "hackathon_name"}},
		References: map[string]string{"user_id": TableProfiles},
		Checks: map[string][]string{
			"experience":          {"first-time", "some", "many"},
			"registration_status": {"pending", "completed", "cancelled"},
		},
	},
}

// LookupTable returns the schema of table.
func LookupTable(table string) (Table, error) {
	t, ok := Tables[table]
	if !ok {
		return Table{}, apperr.New(apperr.Unknown).With("table", table).Errorf("unknown table %q", table)
	}
	return t, nil
}

// CheckColumns rejects columns the table does not have.
func (t Table) CheckColumns(cols map[string]any) error {
	for col := range cols {
		if !t.HasColumn(col) {
			return apperr.New(apperr.InvalidData).
				With("table", t.Name).
				With("column", col).
				Errorf("unknown column %q", col)
		}
	}
	return nil
}
