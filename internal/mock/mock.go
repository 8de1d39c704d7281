// Package mock generates the sample data the dev server starts with.
// Output is deterministic for a given seed.
package mock

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hongminglow/therapy-console/internal/format"
	"github.com/hongminglow/therapy-console/internal/models"
)

const adminName = "系统管理员"

var (
	patientNames    = []string{"张伟", "王芳", "李强", "刘敏", "陈杰", "杨洋", "赵磊", "孙丽", "周欣", "吴宇", "韩雪", "谢磊", "唐静", "冯凯", "邓琳"}
	doctors         = []string{"李医生", "王医生", "赵医生", "刘医生", "陈医生"}
	executeDoctors  = []string{"周医生", "林医生", "许医生", "戴医生", "黄医生"}
	videoCategories = []string{"冥想", "放松", "视觉训练", "音乐治疗"}
)

type ref[ID any] struct {
	id   ID
	name string
}

var (
	departs  = []ref[int64]{{10, "康复科"}, {11, "神经科"}, {12, "眼科"}, {13, "心理科"}}
	projects = []ref[string]{{"TP001", "颈椎理疗"}, {"TP002", "视觉放松"}, {"TP003", "放松音乐治疗"}, {"TP004", "全身放松"}, {"TP005", "冥想训练"}}
	plans    = []ref[int64]{{201, "颈椎方案A"}, {202, "视觉方案B"}, {203, "音乐方案C"}, {204, "放松方案D"}, {205, "冥想方案E"}}
)

// Generator produces sample records from a seeded source.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

// New returns a generator; records dated "recently" are relative to now.
func New(seed uint64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now.UTC()}
}

func pick[T any](g *Generator, items []T) T {
	return items[g.rng.IntN(len(items))]
}

// Devices returns the fixed fleet of 50 headsets.
func Devices() []models.Device {
	out := make([]models.Device, 0, 50)
	for id := int64(1); id <= 10; id++ {
		out = append(out, models.Device{
			ID:              id,
			PicoNumber:      fmt.Sprintf("PICO%05d", id),
			Status:          int((id + 1) % 2),
			CreatedUserID:   1000 + id,
			CreatedUserName: adminName,
			CreatedTime:     fmt.Sprintf("2025-01-%02dT08:00:00.000Z", id),
			UpdatedTime:     fmt.Sprintf("2025-01-%02dT10:00:00.000Z", id),
		})
	}
	for id := int64(11); id <= 50; id++ {
		day := id%28 + 1
		out = append(out, models.Device{
			ID:              id,
			PicoNumber:      fmt.Sprintf("PICO%05d", id),
			Status:          int(id % 2),
			CreatedUserID:   1000 + id,
			CreatedUserName: adminName,
			CreatedTime:     fmt.Sprintf("2025-02-%02dT08:00:00.000Z", day),
			UpdatedTime:     fmt.Sprintf("2025-02-%02dT10:00:00.000Z", day),
		})
	}
	return out
}

func (g *Generator) recent() string {
	back := time.Duration(g.rng.Int64N(int64(30 * 24 * time.Hour)))
	return g.now.Add(-back).Format(time.RFC3339)
}

// VisitRecords returns count treatment sessions with ids 1..count.
func (g *Generator) VisitRecords(count int) []models.VisitRecord {
	out := make([]models.VisitRecord, 0, count)
	for i := 1; i <= count; i++ {
		idx := g.rng.IntN(len(patientNames))
		depart := pick(g, departs)
		project := pick(g, projects)
		plan := pick(g, plans)
		comment := "治疗进展稳定"
		if g.rng.IntN(2) == 0 {
			comment = "无特殊情况"
		}
		out = append(out, models.VisitRecord{
			ID:               int64(i),
			PatientID:        int64(100 + idx),
			PatientName:      patientNames[idx],
			DevicePicoID:     int64(1 + g.rng.IntN(5)),
			TreatDepartID:    depart.id,
			TreatDepart:      depart.name,
			TreatProjectID:   project.id,
			TreatProjectName: project.name,
			VideoPlanID:      plan.id,
			PlanName:         plan.name,
			OrderTreatNumber: fmt.Sprintf("OD2025%04d", g.rng.IntN(10000)),
			Status:           g.rng.IntN(3),
			Diagnostic:       patientNames[idx] + " 的诊断内容",
			DiagnosticDoctor: pick(g, doctors),
			ExecuteDoctor:    pick(g, executeDoctors),
			Comment:          comment,
			CreatedUserID:    int64(1 + g.rng.IntN(5)),
			CreatedUserName:  adminName,
			CreatedTime:      g.recent(),
			UpdatedTime:      g.recent(),
		})
	}
	return out
}

func (g *Generator) code(n int) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var b strings.Builder
	for range n {
		b.WriteByte(alphabet[g.rng.IntN(len(alphabet))])
	}
	return b.String()
}

// Reports returns count report links.
func (g *Generator) Reports(count int) []models.Report {
	out := make([]models.Report, 0, count)
	for range count {
		plan := pick(g, plans)
		out = append(out, models.Report{
			ID:          g.code(12),
			Link:        fmt.Sprintf("https://example.com/report/%s.pdf", g.code(12)),
			PatientName: pick(g, patientNames),
			ExeDoctor:   pick(g, doctors),
			PicoNumber:  fmt.Sprintf("PICO-%d", 1000+g.rng.IntN(9000)),
			PlanID:      fmt.Sprintf("P%03d", plan.id-200),
			PlanName:    plan.name,
			TreatID:     g.code(12),
		})
	}
	return out
}

// Patients returns one patient per known name, ids starting at 100.
func (g *Generator) Patients() []models.Patient {
	genders := []models.Gender{models.GenderMale, models.GenderFemale}
	out := make([]models.Patient, 0, len(patientNames))
	for i, name := range patientNames {
		out = append(out, models.Patient{
			ID:             int64(100 + i),
			Name:           name,
			Age:            18 + g.rng.IntN(60),
			Gender:         pick(g, genders),
			Phone:          fmt.Sprintf("138%08d", g.rng.IntN(100000000)),
			MedicalHistory: []string{pick(g, projects).name},
		})
	}
	return out
}

// Videos returns count therapy videos.
func (g *Generator) Videos(count int) []models.Video {
	out := make([]models.Video, 0, count)
	for i := 1; i <= count; i++ {
		category := pick(g, videoCategories)
		out = append(out, models.Video{
			ID:          fmt.Sprintf("v%03d", i),
			Title:       fmt.Sprintf("%s课程 %d", category, i),
			Description: fmt.Sprintf("%s主题的引导视频", category),
			Category:    category,
			Tags:        []string{category, "4K"},
			CoverURL:    fmt.Sprintf("https://example.com/cover/%03d.jpg", i),
			VideoURL:    fmt.Sprintf("https://example.com/video/%03d.mp4", i),
			DurationSec: 120 + g.rng.IntN(1800),
			CreatedAt:   g.recent(),
			Views:       g.rng.Int64N(5000),
		})
	}
	return out
}

// DictTypes returns the dictionaries the console relies on.
func DictTypes() []models.DictType {
	return []models.DictType{
		{DictID: 1, DictName: "设备状态", DictType: "sys_device_status", Status: models.DictStatusActive, Remark: "设备状态列表"},
		{DictID: 2, DictName: "治疗状态", DictType: "sys_treat_status", Status: models.DictStatusActive, Remark: "治疗记录状态列表"},
		{DictID: 3, DictName: "用户性别", DictType: "sys_user_sex", Status: models.DictStatusActive},
	}
}

// DictData returns the values of DictTypes.
func DictData() []models.DictData {
	return []models.DictData{
		{DictCode: 1, DictType: "sys_device_status", DictLabel: "空闲", DictValue: "0", DictSort: 1, CSSType: "success", Status: models.DictStatusActive},
		{DictCode: 2, DictType: "sys_device_status", DictLabel: "使用中", DictValue: "1", DictSort: 2, CSSType: "warning", Status: models.DictStatusActive},
		{DictCode: 3, DictType: "sys_treat_status", DictLabel: "未开始", DictValue: "0", DictSort: 1, CSSType: "info", Status: models.DictStatusActive},
		{DictCode: 4, DictType: "sys_treat_status", DictLabel: "进行中", DictValue: "1", DictSort: 2, CSSType: "primary", Status: models.DictStatusActive},
		{DictCode: 5, DictType: "sys_treat_status", DictLabel: "已完成", DictValue: "2", DictSort: 3, CSSType: "success", Status: models.DictStatusActive},
		{DictCode: 6, DictType: "sys_user_sex", DictLabel: "男", DictValue: "male", DictSort: 1, Status: models.DictStatusActive},
		{DictCode: 7, DictType: "sys_user_sex", DictLabel: "女", DictValue: "female", DictSort: 2, Status: models.DictStatusActive},
	}
}

// SysConfig is the default speech configuration.
func SysConfig() models.SysConfigInfo {
	return models.SysConfigInfo{
		AsrSetting: models.AsrSetting{ModelName: "whisper-1", Platform: "openai", MaxRecordDuration: 60, MaxFileSize: 10 << 20},
		TtsSetting: models.TtsSetting{SynthesizerSide: format.SynthesizerClient, ModelName: "tts-1", Platform: "openai"},

		ResponseShowType: format.ContentAuto,
		SearchEngines: []models.SearchEngineInfo{
			{Name: "bing", Enable: true},
			{Name: "google", Enable: false},
		},
	}
}
