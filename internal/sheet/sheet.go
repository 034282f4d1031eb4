package sheet

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kpapadakis/ali-price-checker/internal/models"
)

// Workbook layout contract: three header rows, data from row 4 down.
// Col A item URL, col B tracking flag, col C item price, col D shipping
// price, col E status note.
const (
	headerRows = 3

	colURL       = "A"
	colTracking  = "B"
	colItemPrice = "C"
	colShipping  = "D"
	colStatus    = "E"
)

// Manager reads check items from and writes quotes back into one worksheet.
type Manager struct {
	f      *excelize.File
	path   string
	sheet  string
	logger *slog.Logger
}

// Open loads the workbook and binds to its first worksheet.
func Open(path string, logger *slog.Logger) (*Manager, error) {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return nil, fmt.Errorf("unsupported workbook %q: only .xlsx is supported", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook %q has no worksheets", path)
	}

	return &Manager{
		f:      f,
		path:   path,
		sheet:  sheets[0],
		logger: logger.With("component", "sheet"),
	}, nil
}

// Sheet returns the bound worksheet name.
func (m *Manager) Sheet() string {
	return m.sheet
}

// Items returns the check items from the data rows. The Row field carries the
// 1-based worksheet row so results land next to their URL. Rows with an empty
// URL cell are skipped.
func (m *Manager) Items() ([]models.CheckItem, error) {
	rows, err := m.f.GetRows(m.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", m.sheet, err)
	}

	var items []models.CheckItem
	for i, row := range rows {
		if i < headerRows {
			continue
		}

		url := cellAt(row, 0)
		if url == "" {
			continue
		}

		items = append(items, models.CheckItem{
			URL:      url,
			Tracking: parseTracking(cellAt(row, 1)),
			Row:      i + 1,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no item urls in worksheet %q (data starts at row %d, column %s)", m.sheet, headerRows+1, colURL)
	}

	m.logger.Info("items loaded", "count", len(items))
	return items, nil
}

// WriteQuote records a quote's prices in the item's row and clears the status
// cell.
func (m *Manager) WriteQuote(row int, quote *models.PriceQuote) error {
	if row <= headerRows {
		return fmt.Errorf("row %d is inside the header", row)
	}

	if err := m.f.SetCellFloat(m.sheet, cell(colItemPrice, row), quote.ItemPrice, 2, 64); err != nil {
		return fmt.Errorf("failed to write item price: %w", err)
	}
	if err := m.f.SetCellFloat(m.sheet, cell(colShipping, row), quote.ShippingPrice, 2, 64); err != nil {
		return fmt.Errorf("failed to write shipping price: %w", err)
	}
	if err := m.f.SetCellValue(m.sheet, cell(colStatus, row), ""); err != nil {
		return fmt.Errorf("failed to clear status: %w", err)
	}

	return nil
}

// WriteError records a failure note in the item's status cell without
// touching any previously written prices.
func (m *Manager) WriteError(row int, msg string) error {
	if row <= headerRows {
		return fmt.Errorf("row %d is inside the header", row)
	}

	if err := m.f.SetCellValue(m.sheet, cell(colStatus, row), msg); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	return nil
}

// Save writes the workbook back to disk.
func (m *Manager) Save() error {
	if err := m.f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	m.logger.Info("workbook saved", "path", m.path)
	return nil
}

// SaveAs writes the workbook to a new path, leaving the original untouched.
func (m *Manager) SaveAs(path string) error {
	if err := m.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook to %q: %w", path, err)
	}
	m.logger.Info("workbook saved", "path", path)
	return nil
}

func (m *Manager) Close() error {
	return m.f.Close()
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseTracking reads the tracking flag cell. An empty cell means untracked;
// explicit negatives are honored; any other text counts as tracked, matching
// how the sheets in circulation fill the column.
func parseTracking(value string) bool {
	switch strings.ToLower(value) {
	case "", "false", "no", "0":
		return false
	default:
		return true
	}
}
