// Package export writes audit logs and patient records to local files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"securehealth-console/internal/domain"

	"github.com/xuri/excelize/v2"
)

// LogHeader 审计日志导出列（CSV 与 XLSX 相同）
var LogHeader = []string{
	"id",
	"user_id",
	"patient_id",
	"action",
	"resource",
	"ip_address",
	"timestamp",
	"anomaly_score",
	"flagged",
}

// LogSheet XLSX 工作表名
const LogSheet = "Audit Logs"

// LogsFileName 默认导出文件名 audit_logs_<毫秒时间戳>.<ext>
func LogsFileName(now time.Time, ext string) string {
	return fmt.Sprintf("audit_logs_%d.%s", now.UnixMilli(), ext)
}

func logRow(l domain.AuditLog) []string {
	patient := ""
	if l.PatientID != nil {
		patient = strconv.FormatInt(*l.PatientID, 10)
	}
	ts := ""
	if !l.Timestamp.IsZero() {
		ts = l.Timestamp.Format(time.RFC3339)
	}
	flagged := "0"
	if l.Flagged {
		flagged = "1"
	}
	return []string{
		strconv.FormatInt(l.ID, 10),
		strconv.FormatInt(l.UserID, 10),
		patient,
		string(l.Action),
		l.Resource,
		l.IPAddress,
		ts,
		strconv.FormatFloat(l.AnomalyScore, 'f', -1, 64),
		flagged,
	}
}

// WriteLogsCSV 写出 CSV，第一行为表头
func WriteLogsCSV(w io.Writer, logs []domain.AuditLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LogHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range logs {
		if err := cw.Write(logRow(l)); err != nil {
			return fmt.Errorf("write csv row %d: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateLogsXLSX 生成审计日志 Excel 文件
func GenerateLogsXLSX(logs []domain.AuditLog) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(LogSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 表头
	if err := f.SetSheetRow(LogSheet, "A1", &LogHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(LogHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(LogSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	// 数据从第 2 行开始；数值列写成数字
	for i, l := range logs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := logRow(l)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		values[0] = l.ID
		values[1] = l.UserID
		values[7] = l.AnomalyScore
		if err := f.SetSheetRow(LogSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(LogSheet, "E", "G", 22); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetPanes(LogSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteLogsXLSX 生成 Excel 并写入 path
func WriteLogsXLSX(path string, logs []domain.AuditLog) error {
	data, err := GenerateLogsXLSX(logs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
