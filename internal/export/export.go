// Package export renders season standings and leaderboards as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	StandingsSheet   = "Standings"
	LeaderboardSheet = "Leaderboard"
)

var (
	standingsHeader   = []interface{}{"Rank", "Player ID", "Final Rating", "Tier", "Wins", "Losses", "Rewards Claimed"}
	leaderboardHeader = []interface{}{"Rank", "Player ID", "Rating", "Tier", "Wins", "Losses"}
)

// WriteStandings writes the final standings of a season as an xlsx workbook.
// Records are expected in standing order.
func WriteStandings(w io.Writer, season *domain.Season, records []*domain.SeasonRecord) error {
	rows := make([][]interface{}, 0, len(records))
	for i, r := range records {
		rows = append(rows, []interface{}{
			i + 1, r.PlayerID, r.FinalRating, string(r.FinalTier), r.Wins, r.Losses, r.RewardsClaimed,
		})
	}

	title := fmt.Sprintf("%s (%s)", season.Name, season.ID)
	if season.EndedAt != nil {
		title += " ended " + season.EndedAt.UTC().Format(time.RFC3339)
	}
	return writeWorkbook(w, StandingsSheet, title, standingsHeader, rows)
}

// WriteLeaderboard writes a leaderboard page as an xlsx workbook.
func WriteLeaderboard(w io.Writer, entries []pvp.LeaderboardEntry, generatedAt time.Time) error {
	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{e.Rank, e.PlayerID, e.Rating, string(e.Tier), e.Wins, e.Losses})
	}
	title := "Leaderboard " + generatedAt.UTC().Format(time.RFC3339)
	return writeWorkbook(w, LeaderboardSheet, title, leaderboardHeader, rows)
}

// writeWorkbook lays out a title in A1, a bold header in row 2 and data from row 3.
func writeWorkbook(w io.Writer, sheet, title string, header []interface{}, rows [][]interface{}) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 2)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
