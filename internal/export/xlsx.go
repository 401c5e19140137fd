// Package export renders account skin lists for hand-over to buyers.
package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"traking-shop/internal/catalog"
	"traking-shop/internal/models"
)

const SheetName = "Skins"

var headers = []interface{}{"Weapon", "Name", "Rarity", "Type", "Collection", "Image URL"}

// AccountSkinsXLSX writes one row per skin, preceded by the product name and a header row.
func AccountSkinsXLSX(w io.Writer, product models.Product, skins []models.Skin) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := f.SetCellValue(SheetName, "A1", product.Name); err != nil {
		return errors.Wrap(err, "write title")
	}
	if err := f.SetSheetRow(SheetName, "A2", &headers); err != nil {
		return errors.Wrap(err, "write header")
	}

	for i, s := range skins {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []interface{}{s.Weapon, s.Name, s.Rarity, catalog.RarityType(s.Rarity), s.Collection, s.ImageURL}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+3)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "E", 18); err != nil {
		return errors.Wrap(err, "set column width")
	}
	if err := f.SetColWidth(SheetName, "F", "F", 60); err != nil {
		return errors.Wrap(err, "set column width")
	}

	_, err := f.WriteTo(w)
	return errors.Wrap(err, "write workbook")
}
