package ingest

import "github.com/AngelCh415/adboard/internal/models"

// ExtractNotes filters rows and projects the survivors onto the four note
// fields.
func ExtractNotes(rows []models.RawRow, filter NoteFilter, aliases Aliases) []models.Note {
	notes := make([]models.Note, 0, len(rows))
	for _, row := range rows {
		if !filter.Keep(row) {
			continue
		}
		notes = append(notes, models.Note{
			PublishTime: aliases.Lookup(row, FieldPublishTime),
			Type:        aliases.Lookup(row, FieldNoteType),
			Name:        aliases.Lookup(row, FieldNoteName),
			Link:        aliases.Lookup(row, FieldNoteLink),
		})
	}
	return notes
}
