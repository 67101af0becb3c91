package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/dto"
	"github.com/mudit2103/csm-web/internal/model"
	"github.com/mudit2103/csm-web/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrSectionNotFound    = errors.New("讨论班不存在")
	ErrExportEmpty        = errors.New("暂无可导出的数据")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 名册导出为 Excel (.xlsx)，每门课程一个 Sheet，每个讨论班一行
//   - 讨论班上课日历导出为 iCalendar (.ics)，每周一个事件，调课周以 Override 时空替换
type ExportService interface {
	// ExportRoster 导出全部课程的讨论班名册
	ExportRoster(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportSectionCalendar 导出单个讨论班的上课日历
	ExportSectionCalendar(ctx context.Context, sectionID string) (string, error)
}

type exportService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster — 导出名册为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet 名 = 课程名（按课程名排序）
//   - 表头：地点 | 星期 | 开始时间 | 时长 | Mentor | 容量 | 已选 | 学生
//   - 学生列为逗号分隔的用户名

var rosterHeader = []string{"地点", "星期", "开始时间", "时长(分钟)", "Mentor", "容量", "已选", "学生"}

func (s *exportService) ExportRoster(ctx context.Context) (*bytes.Buffer, string, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}
	if len(courses) == 0 {
		return nil, "", ErrExportEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, course := range courses {
		sections, err := s.repo.Section.ListByCourse(ctx, course.CourseID)
		if err != nil {
			s.logger.Error("查询讨论班失败", zap.String("course", course.Name), zap.Error(err))
			return nil, "", err
		}
		rows := lo.Map(sections, func(sec model.Section, _ int) dto.RosterRow {
			return toRosterRow(course.Name, &sec)
		})

		sheet := sheetName(course.Name)
		idx, err := f.NewSheet(sheet)
		if err != nil {
			s.logger.Error("创建 Sheet 失败", zap.String("sheet", sheet), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		// 列宽
		f.SetColWidth(sheet, "A", "A", 16)
		f.SetColWidth(sheet, "B", "D", 12)
		f.SetColWidth(sheet, "E", "E", 24)
		f.SetColWidth(sheet, "F", "G", 8)
		f.SetColWidth(sheet, "H", "H", 60)

		for c, title := range rosterHeader {
			f.SetCellValue(sheet, cell(colName(c), 1), title)
		}
		f.SetCellStyle(sheet, "A1", cell(colName(len(rosterHeader)-1), 1), headerStyle)

		for r, row := range rows {
			line := r + 2
			f.SetCellValue(sheet, cell("A", line), row.Location)
			f.SetCellValue(sheet, cell("B", line), row.DayOfWeek)
			f.SetCellValue(sheet, cell("C", line), row.StartTime)
			f.SetCellValue(sheet, cell("D", line), row.Duration)
			f.SetCellValue(sheet, cell("E", line), row.Mentor)
			f.SetCellValue(sheet, cell("F", line), row.Capacity)
			f.SetCellValue(sheet, cell("G", line), row.Enrolled)
			f.SetCellValue(sheet, cell("H", line), strings.Join(row.Students, ", "))
		}
	}
	// 删除默认 Sheet1（课程名恰为 Sheet1 时保留）
	if !lo.ContainsBy(courses, func(c model.Course) bool { return sheetName(c.Name) == "Sheet1" }) {
		f.DeleteSheet("Sheet1")
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("roster_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

func toRosterRow(courseName string, sec *model.Section) dto.RosterRow {
	row := dto.RosterRow{
		Course:   courseName,
		Capacity: sec.Capacity,
		Enrolled: len(sec.Students),
		Students: lo.FilterMap(sec.Students, func(p model.Profile, _ int) (string, bool) {
			if p.User == nil {
				return "", false
			}
			return p.User.Username, true
		}),
	}
	if st := sec.DefaultSpacetime; st != nil {
		row.Location = st.Location
		row.DayOfWeek = string(st.DayOfWeek)
		row.StartTime = st.StartTime
		row.Duration = st.DurationMinutes
	}
	if sec.Mentor != nil && sec.Mentor.User != nil {
		row.Mentor = sec.Mentor.User.Username
	}
	return row
}

// ═══════════════════════════════════════════════════════════
// ExportSectionCalendar — 导出讨论班上课日历
// ═══════════════════════════════════════════════════════════
//
// 从报名开始当天或之后的第一个上课日起，每周一个 VEVENT，直到课程有效期截止（不含）。
// 某周存在 Override 时，该周事件改用 Override 的地点、星期与时间。

func (s *exportService) ExportSectionCalendar(ctx context.Context, sectionID string) (string, error) {
	section, err := s.repo.Section.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSectionNotFound
		}
		s.logger.Error("查询讨论班失败", zap.String("id", sectionID), zap.Error(err))
		return "", err
	}
	if section.Course == nil || section.DefaultSpacetime == nil {
		return "", ErrExportEmpty
	}

	overrides, err := s.repo.Override.ListBySection(ctx, sectionID)
	if err != nil {
		s.logger.Error("查询调课记录失败", zap.String("id", sectionID), zap.Error(err))
		return "", err
	}
	byWeek := lo.SliceToMap(overrides, func(o model.Override) (string, model.Override) {
		return model.DateOf(o.WeekStart).Format("2006-01-02"), o
	})

	course := section.Course
	first, err := section.DefaultSpacetime.FirstMeetingOnOrAfter(course.EnrollmentStart)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//csm-web//scheduler//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s section", course.Name))

	loc := s.cfg.App.Location()
	stamp := s.now().UTC()
	validUntil := model.DateOf(course.ValidUntil)
	events := 0

	for date := first; date.Before(validUntil); date = date.AddDate(0, 0, 7) {
		week := model.WeekStart(date)
		st := section.DefaultSpacetime
		meeting := date
		if o, ok := byWeek[week.Format("2006-01-02")]; ok && o.Spacetime != nil {
			st = o.Spacetime
			if wd, ok := st.DayOfWeek.Weekday(); ok {
				meeting = week.AddDate(0, 0, (int(wd)+6)%7)
			}
		}

		offset, err := st.ClockOffset()
		if err != nil {
			return "", err
		}
		start := time.Date(meeting.Year(), meeting.Month(), meeting.Day(), 0, 0, 0, 0, loc).Add(offset)

		uid := uuid.NewSHA1(uuid.NameSpaceURL, []byte(section.SectionID+"/"+week.Format("2006-01-02")))
		evt := cal.AddEvent(uid.String())
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(start)
		evt.SetEndAt(start.Add(st.Duration()))
		evt.SetSummary(fmt.Sprintf("%s section", course.Name))
		evt.SetLocation(st.Location)
		events++
	}

	if events == 0 {
		return "", ErrExportEmpty
	}
	return cal.Serialize(), nil
}

// ── 辅助函数 ──

// sheetName Excel Sheet 名最长 31 个字符，且不能包含 : \ / ? * [ ]
func sheetName(name string) string {
	name = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")").Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "course"
	}
	return name
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
