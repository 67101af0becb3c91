// Package fixture 生成随机但满足约束的调度测试数据。
//
// Factory 只构造值对象，不访问数据库：依赖字段按拓扑顺序计算
// （course → spacetime → section → student → attendance / override），
// 持久化由 service.FixtureService 负责。
package fixture

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/mudit2103/csm-web/internal/model"
)

// Buildings 讨论班所在楼宇
var Buildings = []string{"Cory", "Soda", "Kresge", "Moffitt"}

// 讨论班人数与时长取值
const (
	MinCapacity = 3
	MaxCapacity = 6
)

var durations = []int{60, 90}

// Factory 测试数据构造器
type Factory struct {
	faker        *gofakeit.Faker
	seq          int
	passwordHash string
}

// New 创建 Factory；seed 为 0 时使用当前时间作为种子
func New(seed uint64, passwordHash string) *Factory {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Factory{
		faker:        gofakeit.New(seed),
		passwordHash: passwordHash,
	}
}

// ── 随机辅助 ──

// Pick 返回 [0, n) 内的随机下标；n <= 0 时返回 -1
func (f *Factory) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return f.faker.IntRange(0, n-1)
}

// Between 返回 [lo, hi] 内的随机整数
func (f *Factory) Between(lo, hi int) int {
	return f.faker.IntRange(lo, hi)
}

// Quarter 约 25% 的抽样次数
func Quarter(n int) int {
	return n / 4
}

// ── 值对象构造 ──

// Course 课程：有效期在今天前后一年内，报名窗口落在有效期截止前 10~17 周
// 保证 enrollment_start < enrollment_end <= valid_until
func (f *Factory) Course(name string, today time.Time) model.Course {
	today = model.DateOf(today)
	validUntil := model.DateOf(f.faker.DateRange(today.AddDate(-1, 0, 0), today.AddDate(1, 0, 0)))

	start := f.instant(validUntil.AddDate(0, 0, -17*7), validUntil.AddDate(0, 0, -10*7))
	end := f.instant(start.Add(time.Minute), validUntil)

	return model.Course{
		Name:            name,
		ValidUntil:      validUntil,
		EnrollmentStart: start,
		EnrollmentEnd:   end,
	}
}

// instant 取 [lo, hi] 内的时刻，精度到秒
func (f *Factory) instant(lo, hi time.Time) time.Time {
	t := f.faker.DateRange(lo, hi).UTC().Truncate(time.Second)
	if t.Before(lo) {
		return lo.UTC()
	}
	return t
}

// Spacetime 随机上课时空：半点开始，08:00 ~ 19:30，时长 60 或 90 分钟
func (f *Factory) Spacetime() model.Spacetime {
	building := f.faker.RandomString(Buildings)
	hour := f.faker.IntRange(8, 19)
	minute := 30 * f.faker.IntRange(0, 1)

	return model.Spacetime{
		Location:        fmt.Sprintf("%s %d", building, f.faker.IntRange(1, 500)),
		DayOfWeek:       model.DaysOfWeek[f.Pick(len(model.DaysOfWeek))],
		StartTime:       fmt.Sprintf("%02d:%02d:00", hour, minute),
		DurationMinutes: durations[f.Pick(len(durations))],
	}
}

// User 随机用户，用户名 = 姓名（空格替换为下划线）+ 递增序号
func (f *Factory) User() model.User {
	f.seq++
	username := fmt.Sprintf("%s%d", strings.ReplaceAll(f.faker.Name(), " ", "_"), f.seq)
	return model.User{
		Username:     username,
		Email:        strings.ToLower(username) + "@berkeley.edu",
		PasswordHash: f.passwordHash,
	}
}

// Capacity 讨论班容量
func (f *Factory) Capacity() int {
	return f.faker.IntRange(MinCapacity, MaxCapacity)
}

// StudentCount 初始学生数，1 ~ capacity
func (f *Factory) StudentCount(capacity int) int {
	if capacity < 1 {
		return 0
	}
	return f.faker.IntRange(1, capacity)
}

// Presence 已发生周次的随机出勤状态
func (f *Factory) Presence() string {
	return f.faker.RandomString(model.Presences)
}

// Attendances 为学生回填从报名开始到课程有效期截止的每周出勤
// 上课日期早于 today 的周次取随机状态，其余周次保持未设置
func (f *Factory) Attendances(course *model.Course, st *model.Spacetime, sectionID, attendeeID string, today time.Time) ([]model.Attendance, error) {
	date, err := st.FirstMeetingOnOrAfter(course.EnrollmentStart)
	if err != nil {
		return nil, err
	}
	today = model.DateOf(today)
	validUntil := model.DateOf(course.ValidUntil)

	var records []model.Attendance
	for ; date.Before(validUntil); date = date.AddDate(0, 0, 7) {
		presence := model.PresenceUnset
		if date.Before(today) {
			presence = f.Presence()
		}
		records = append(records, model.Attendance{
			SectionID:  sectionID,
			AttendeeID: attendeeID,
			WeekStart:  model.WeekStart(date),
			Presence:   presence,
		})
	}
	return records, nil
}

// OverrideWeek 报名开始到有效期截止之间随机一周的周一
func (f *Factory) OverrideWeek(course *model.Course) time.Time {
	lo := model.DateOf(course.EnrollmentStart)
	hi := model.DateOf(course.ValidUntil)
	if hi.Before(lo) {
		hi = lo
	}
	return model.WeekStart(f.faker.DateRange(lo, hi).UTC())
}
