package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadCSV(t *testing.T) {
	// WHAT: End-to-end load of a CSV reference file.
	dir := t.TempDir()
	path := filepath.Join(dir, "translate.csv")
	data := "Key,Original EN,Original CN,Original KH,KH Confirm from BIC,CN Confirm from BIC\n" +
		"k1,Submit,提交草稿,ស្នើ,ស្នើសុំ,提交\n" +
		"k2,Dashboard,仪表盘,ផ្ទាំង,ផ្ទាំងគ្រប់គ្រង,仪表板\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	e, ok := c.ByText("submit", English)
	if !ok || e.Key != "k1" {
		t.Errorf("ByText(submit) = %+v, %v", e, ok)
	}
}

func TestLoadXLSX(t *testing.T) {
	// WHAT: The xlsx path reads the first sheet of a workbook.
	dir := t.TempDir()
	path := filepath.Join(dir, "translate.xlsx")

	f := excelize.NewFile()
	headers := []string{"Key", "Original EN", "Original CN", "Original KH", "KH Confirm from BIC", "CN Confirm from BIC"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, h)
	}
	row := []string{"k1", "Submit", "提交草稿", "ស្នើ", "ស្នើសុំ", "提交"}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue("Sheet1", cell, v)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	c, err := Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := c.ByKey("k1")
	if !ok || e.ConfirmedKH != "ស្នើសុំ" {
		t.Errorf("ByKey(k1) = %+v, %v", e, ok)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	// WHAT: A file without a required column fails loading.
	// WHY: LoadError is the only fatal error class in the run.
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	data := "Key,Original EN\nk1,Submit\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, slog.Default()); err == nil {
		t.Fatal("expected load failure")
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	// WHAT: Unknown reference formats are rejected up front.
	if _, err := Load("translate.pdf", slog.Default()); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
