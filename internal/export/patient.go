package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"securehealth-console/internal/domain"
)

// PatientFileName patient_<姓名，空白替换为下划线>.json
func PatientFileName(p domain.Patient) string {
	return "patient_" + strings.Join(strings.Fields(p.Name), "_") + ".json"
}

// WritePatientJSON 把导出的患者记录写入 dir，返回文件路径
func WritePatientJSON(dir string, p domain.Patient) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode patient %d: %w", p.ID, err)
	}
	path := filepath.Join(dir, PatientFileName(p))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
