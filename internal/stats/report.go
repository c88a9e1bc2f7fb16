package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const reportsDir = "reports"

type Report struct {
	ID           string       `json:"id"`
	CreatedAtUTC string       `json:"created_at_utc"`
	RolloutIDs   []string     `json:"rollout_ids,omitempty"`
	Stats        RolloutStats `json:"stats"`
}

func WriteReport(baseDir string, r Report) error {
	if r.ID == "" {
		return fmt.Errorf("report id is required")
	}
	path := reportPath(baseDir, r.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ReadReport(baseDir, id string) (Report, bool, error) {
	if id == "" {
		return Report{}, false, fmt.Errorf("report id is required")
	}
	data, err := os.ReadFile(reportPath(baseDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, false, nil
		}
		return Report{}, false, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, false, err
	}
	return r, true, nil
}

// ListReports returns the newest report first.
func ListReports(baseDir string) ([]Report, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, reportsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []Report{}, nil
		}
		return nil, err
	}

	reports := make([]Report, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r, ok, err := ReadReport(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAtUTC == reports[j].CreatedAtUTC {
			return reports[i].ID < reports[j].ID
		}
		return reports[i].CreatedAtUTC > reports[j].CreatedAtUTC
	})
	return reports, nil
}

func reportPath(baseDir, id string) string {
	return filepath.Join(baseDir, reportsDir, id, "report.json")
}
