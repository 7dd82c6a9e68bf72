package logs

import (
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/narvanalabs/mission-console/internal/models"
)

var baseTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// genLogEntry generates valid log entries, about half with a mission ID.
func genLogEntry() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 86400),
		gen.OneConstOf(models.LevelInfo, models.LevelWarning, models.LevelError, models.LevelSuccess),
		gen.OneConstOf(models.CategoryMission, models.CategoryQuota, models.CategoryEngagement, models.CategoryAPI, models.CategorySystem),
		gen.AlphaString(),
		gen.OneGenOf(gen.Const(""), gen.Identifier()),
	).Map(func(values []interface{}) models.LogEntry {
		return models.LogEntry{
			Timestamp: baseTime.Add(time.Duration(values[0].(int)) * time.Second),
			Level:     values[1].(models.Level),
			Category:  values[2].(models.Category),
			Message:   values[3].(string),
			MissionID: values[4].(string),
		}
	})
}

// streamOp is either a history snapshot or a single log append.
type streamOp struct {
	History bool
	Logs    []models.LogEntry
	Entry   models.LogEntry
}

func genStreamOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 4),
		gen.SliceOf(genLogEntry()),
		genLogEntry(),
	).Map(func(values []interface{}) streamOp {
		return streamOp{
			// One in five operations is a snapshot.
			History: values[0].(int) == 0,
			Logs:    values[1].([]models.LogEntry),
			Entry:   values[2].(models.LogEntry),
		}
	})
}

func genCriteria() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(All, "info", "warning", "error", "success"),
		gen.OneConstOf(All, "mission", "quota", "engagement", "api", "system"),
		gen.OneConstOf("", "a", "B", "xy", "mission"),
	).Map(func(values []interface{}) Criteria {
		return Criteria{
			Level:    values[0].(string),
			Category: values[1].(string),
			Search:   values[2].(string),
		}
	})
}

func entriesEqual(a, b []models.LogEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Timestamp.Equal(b[i].Timestamp) ||
			a[i].Level != b[i].Level ||
			a[i].Category != b[i].Category ||
			a[i].Message != b[i].Message ||
			a[i].MissionID != b[i].MissionID {
			return false
		}
	}
	return true
}
