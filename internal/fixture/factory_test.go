package fixture

import (
	"strings"
	"testing"
	"time"

	"github.com/mudit2103/csm-web/internal/model"
)

var today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestFactory_Course_DateOrdering(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		f := New(seed, "hash")
		c := f.Course("CS70", today)

		if !c.EnrollmentStart.Before(c.EnrollmentEnd) {
			t.Fatalf("seed=%d: 期望 enrollment_start < enrollment_end，实际 %v >= %v", seed, c.EnrollmentStart, c.EnrollmentEnd)
		}
		if c.EnrollmentEnd.After(c.ValidUntil) {
			t.Fatalf("seed=%d: 期望 enrollment_end <= valid_until，实际 %v > %v", seed, c.EnrollmentEnd, c.ValidUntil)
		}
		if c.ValidUntil.Before(today.AddDate(-1, 0, 0)) || c.ValidUntil.After(today.AddDate(1, 0, 0)) {
			t.Fatalf("seed=%d: valid_until 超出今天前后一年: %v", seed, c.ValidUntil)
		}
		weeks := c.ValidUntil.Sub(c.EnrollmentStart).Hours() / (24 * 7)
		if weeks < 10 || weeks > 17 {
			t.Fatalf("seed=%d: 报名开始应在截止前 10~17 周，实际 %.1f 周", seed, weeks)
		}
	}
}

func TestFactory_Spacetime_Ranges(t *testing.T) {
	f := New(7, "hash")
	for i := 0; i < 200; i++ {
		st := f.Spacetime()

		building := strings.SplitN(st.Location, " ", 2)[0]
		found := false
		for _, b := range Buildings {
			if b == building {
				found = true
			}
		}
		if !found {
			t.Errorf("未知楼宇: %s", st.Location)
		}
		if _, ok := st.DayOfWeek.Weekday(); !ok {
			t.Errorf("非法星期: %s", st.DayOfWeek)
		}
		off, err := st.ClockOffset()
		if err != nil {
			t.Fatalf("非法开始时间 %s: %v", st.StartTime, err)
		}
		if off < 8*time.Hour || off > 19*time.Hour+30*time.Minute || off%(30*time.Minute) != 0 {
			t.Errorf("开始时间应为 08:00~19:30 的半点，实际 %s", st.StartTime)
		}
		if st.DurationMinutes != 60 && st.DurationMinutes != 90 {
			t.Errorf("时长应为 60 或 90，实际 %d", st.DurationMinutes)
		}
	}
}

func TestFactory_User_UniqueUsernames(t *testing.T) {
	f := New(3, "hash")
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		u := f.User()
		if seen[u.Username] {
			t.Fatalf("用户名重复: %s", u.Username)
		}
		seen[u.Username] = true
		if strings.Contains(u.Username, " ") {
			t.Errorf("用户名不应包含空格: %s", u.Username)
		}
		if u.PasswordHash != "hash" {
			t.Errorf("期望共用密码哈希，实际=%s", u.PasswordHash)
		}
	}
}

func TestFactory_CapacityAndStudentCount(t *testing.T) {
	f := New(11, "hash")
	for i := 0; i < 200; i++ {
		c := f.Capacity()
		if c < MinCapacity || c > MaxCapacity {
			t.Fatalf("容量越界: %d", c)
		}
		n := f.StudentCount(c)
		if n < 1 || n > c {
			t.Fatalf("学生数应在 1~%d，实际 %d", c, n)
		}
	}
	if f.StudentCount(0) != 0 {
		t.Error("容量为 0 时学生数应为 0")
	}
}

func TestFactory_Attendances(t *testing.T) {
	f := New(5, "hash")
	course := &model.Course{
		ValidUntil:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EnrollmentEnd:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	st := &model.Spacetime{DayOfWeek: model.Monday, StartTime: "10:00:00", DurationMinutes: 60}
	now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	records, err := f.Attendances(course, st, "section-1", "student-1", now)
	if err != nil {
		t.Fatalf("不应出错: %v", err)
	}
	// 1/1、1/8、1/15、1/22、1/29
	if len(records) != 5 {
		t.Fatalf("期望 5 条出勤，实际 %d", len(records))
	}
	if first := records[0].WeekStart; !first.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("期望首周 week_start=2024-01-01，实际 %v", first)
	}
	for i, r := range records {
		if r.SectionID != "section-1" || r.AttendeeID != "student-1" {
			t.Errorf("第 %d 条关联字段不符", i)
		}
		past := r.WeekStart.Before(now)
		if past && r.Presence == model.PresenceUnset {
			t.Errorf("已发生的第 %d 周应有出勤状态", i)
		}
		if !past && r.Presence != model.PresenceUnset {
			t.Errorf("未发生的第 %d 周不应有出勤状态，实际=%s", i, r.Presence)
		}
	}
}

func TestFactory_Attendances_NonMondaySection(t *testing.T) {
	f := New(5, "hash")
	course := &model.Course{
		ValidUntil:      time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	st := &model.Spacetime{DayOfWeek: model.Friday, StartTime: "10:00:00", DurationMinutes: 60}

	records, err := f.Attendances(course, st, "s", "a", today)
	if err != nil {
		t.Fatalf("不应出错: %v", err)
	}
	// 1/5、1/12、1/19，week_start 为对应周一
	if len(records) != 3 {
		t.Fatalf("期望 3 条出勤，实际 %d", len(records))
	}
	if !records[1].WeekStart.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("期望 week_start=2024-01-08，实际 %v", records[1].WeekStart)
	}
}

func TestFactory_OverrideWeek_IsMondayInRange(t *testing.T) {
	f := New(9, "hash")
	course := &model.Course{
		ValidUntil:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	}
	for i := 0; i < 100; i++ {
		w := f.OverrideWeek(course)
		if w.Weekday() != time.Monday {
			t.Fatalf("调课周应为周一，实际 %v", w.Weekday())
		}
		if w.Before(model.WeekStart(course.EnrollmentStart)) || w.After(course.ValidUntil) {
			t.Fatalf("调课周越界: %v", w)
		}
	}
}

func TestFactory_Pick(t *testing.T) {
	f := New(1, "hash")
	if f.Pick(0) != -1 {
		t.Error("空集合应返回 -1")
	}
	for i := 0; i < 100; i++ {
		if p := f.Pick(3); p < 0 || p > 2 {
			t.Fatalf("下标越界: %d", p)
		}
	}
	if Quarter(17) != 4 || Quarter(3) != 0 {
		t.Error("Quarter 应向下取整")
	}
}

func TestFactory_SameSeedSameValues(t *testing.T) {
	a, b := New(99, "hash"), New(99, "hash")
	for i := 0; i < 20; i++ {
		if ua, ub := a.User(), b.User(); ua.Username != ub.Username {
			t.Fatalf("相同种子应生成相同用户名: %s != %s", ua.Username, ub.Username)
		}
		if sa, sb := a.Spacetime(), b.Spacetime(); sa != sb {
			t.Fatalf("相同种子应生成相同时空: %+v != %+v", sa, sb)
		}
	}
}
