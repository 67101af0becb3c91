package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/audit"
	"github.com/mudit2103/csm-web/internal/dto"
	"github.com/mudit2103/csm-web/internal/model"
	"github.com/mudit2103/csm-web/internal/repository"
	"github.com/mudit2103/csm-web/internal/testutil"
	pkgerrors "github.com/mudit2103/csm-web/pkg/errors"
)

// ── 测试辅助 ──

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeGuard struct {
	held     bool
	acquired int
	released int
	recorded map[string]interface{}
}

func (g *fakeGuard) AcquireRunLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	if g.held {
		return false, nil
	}
	g.acquired++
	return true, nil
}

func (g *fakeGuard) ReleaseRunLock(ctx context.Context, owner string) error {
	g.released++
	return nil
}

func (g *fakeGuard) RecordRun(ctx context.Context, fields map[string]interface{}) error {
	g.recorded = fields
	return nil
}

func setupTestFixtureService(t *testing.T, cfg *config.Config, guard RunGuard) (*fixtureService, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := NewFixtureService(cfg, repository.NewRepository(db), guard, zap.NewNop()).(*fixtureService)
	svc.now = func() time.Time { return fixedNow }
	return svc, db
}

func generate(t *testing.T, svc *fixtureService, complicate bool) *dto.GenerateResult {
	t.Helper()
	result, err := svc.Generate(context.Background(), &dto.GenerateRequest{Complicate: complicate})
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	return result
}

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	return n
}

// ── 生产环境保护 ──

func TestFixtureService_Generate_ProductionGuard(t *testing.T) {
	cfg := testutil.NewConfig()
	cfg.App.Env = config.EnvProduction
	guard := &fakeGuard{}
	svc, db := setupTestFixtureService(t, cfg, guard)

	legacy := model.Course{
		Name:            "LEGACY",
		ValidUntil:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentStart: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		EnrollmentEnd:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("准备数据失败: %v", err)
	}

	_, err := svc.Generate(context.Background(), &dto.GenerateRequest{})
	if !errors.Is(err, pkgerrors.ErrProductionGuard) {
		t.Fatalf("期望 ErrProductionGuard，实际 %v", err)
	}
	if err.Error() != "This cannot be run in production! Aborting." {
		t.Errorf("中止提示不符: %q", err.Error())
	}
	if n := countRows(t, db, &model.Course{}, ""); n != 1 {
		t.Errorf("生产环境不应修改数据，期望课程数=1，实际=%d", n)
	}
	if guard.acquired != 0 {
		t.Error("生产环境不应尝试获取生成锁")
	}
}

func TestFixtureService_Generate_DebugDisabled(t *testing.T) {
	cfg := testutil.NewConfig()
	cfg.App.Debug = false
	svc, db := setupTestFixtureService(t, cfg, nil)

	_, err := svc.Generate(context.Background(), &dto.GenerateRequest{})
	if !errors.Is(err, pkgerrors.ErrProductionGuard) {
		t.Fatalf("期望 ErrProductionGuard，实际 %v", err)
	}
	if n := countRows(t, db, &model.User{}, ""); n != 0 {
		t.Errorf("期望无用户，实际=%d", n)
	}
}

// ── 生成锁 ──

func TestFixtureService_Generate_LockHeld(t *testing.T) {
	guard := &fakeGuard{held: true}
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), guard)

	_, err := svc.Generate(context.Background(), &dto.GenerateRequest{})
	if !errors.Is(err, pkgerrors.ErrGenerationLocked) {
		t.Fatalf("期望 ErrGenerationLocked，实际 %v", err)
	}
	if n := countRows(t, db, &model.Course{}, ""); n != 0 {
		t.Errorf("锁被占用时不应写入数据，实际课程数=%d", n)
	}
}

func TestFixtureService_Generate_RecordsRun(t *testing.T) {
	guard := &fakeGuard{}
	svc, _ := setupTestFixtureService(t, testutil.NewConfig(), guard)

	result := generate(t, svc, false)

	if guard.acquired != 1 || guard.released != 1 {
		t.Errorf("期望加锁/解锁各一次，实际 acquired=%d released=%d", guard.acquired, guard.released)
	}
	if guard.recorded == nil {
		t.Fatal("期望记录生成摘要")
	}
	if guard.recorded["courses"] != result.Courses {
		t.Errorf("摘要课程数不符: %v != %d", guard.recorded["courses"], result.Courses)
	}
	if guard.recorded["seed"] != uint64(42) {
		t.Errorf("期望 seed=42，实际=%v", guard.recorded["seed"])
	}
}

// ── 数据结构 ──

func TestFixtureService_Generate_Hierarchy(t *testing.T) {
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), nil)
	ctx := context.Background()

	result := generate(t, svc, false)

	if result.Courses != 2 {
		t.Fatalf("期望 2 门课程，实际=%d", result.Courses)
	}
	if result.Coordinators != 4 {
		t.Errorf("期望每门课 2 名 coordinator，实际总数=%d", result.Coordinators)
	}
	if result.SeniorMentors < 2*minSeniorMentors || result.SeniorMentors > 2*maxSeniorMentors {
		t.Errorf("senior mentor 数量越界: %d", result.SeniorMentors)
	}
	if result.JuniorMentors < result.SeniorMentors*minJuniorMentors || result.JuniorMentors > result.SeniorMentors*maxJuniorMentors {
		t.Errorf("junior mentor 数量越界: %d (senior=%d)", result.JuniorMentors, result.SeniorMentors)
	}
	// 未 complicate 时每名 junior 恰好一个讨论班
	if result.Sections != result.JuniorMentors {
		t.Errorf("期望讨论班数=%d，实际=%d", result.JuniorMentors, result.Sections)
	}
	if result.Overrides != 0 {
		t.Errorf("未 complicate 时不应有调课，实际=%d", result.Overrides)
	}
	// 每个 Profile 对应一个独立用户
	profiles := result.Coordinators + result.SeniorMentors + result.JuniorMentors + result.Students
	if result.Users != profiles {
		t.Errorf("期望用户数=%d，实际=%d", profiles, result.Users)
	}

	// coordinator 无 leader，senior 的 leader 是 coordinator，junior 的 leader 是 senior
	if n := countRows(t, db, &model.Profile{}, "role = ? AND leader_id IS NOT NULL", model.RoleCoordinator); n != 0 {
		t.Errorf("coordinator 不应有 leader，实际=%d", n)
	}
	var seniors []model.Profile
	db.Preload("Leader").Where("role = ?", model.RoleSeniorMentor).Find(&seniors)
	for _, p := range seniors {
		if p.Leader == nil || p.Leader.Role != model.RoleCoordinator || p.Leader.CourseID != p.CourseID {
			t.Errorf("senior %s 的 leader 应为同课程 coordinator", p.ProfileID)
		}
	}

	// 学生的 leader 是所在讨论班的 mentor
	sections, err := svc.repo.Section.List(ctx)
	if err != nil {
		t.Fatalf("查询讨论班失败: %v", err)
	}
	for _, sec := range sections {
		students, err := svc.repo.Profile.ListStudents(ctx, sec.SectionID)
		if err != nil {
			t.Fatalf("查询学生失败: %v", err)
		}
		if len(students) < 1 {
			t.Errorf("讨论班 %s 至少应有 1 名学生", sec.SectionID)
		}
		if sec.Capacity < 3 || sec.Capacity > 6 {
			t.Errorf("讨论班容量越界: %d", sec.Capacity)
		}
		for _, s := range students {
			if s.LeaderID == nil || *s.LeaderID != sec.MentorID {
				t.Errorf("学生 %s 的 leader 应为讨论班 mentor", s.ProfileID)
			}
		}
	}
}

func TestFixtureService_Generate_CourseDates(t *testing.T) {
	svc, _ := setupTestFixtureService(t, testutil.NewConfig(), nil)
	generate(t, svc, false)

	courses, err := svc.repo.Course.List(context.Background())
	if err != nil {
		t.Fatalf("查询课程失败: %v", err)
	}
	for _, c := range courses {
		if !c.EnrollmentStart.Before(c.EnrollmentEnd) {
			t.Errorf("%s: 期望 enrollment_start < enrollment_end", c.Name)
		}
		if c.EnrollmentEnd.After(c.ValidUntil) {
			t.Errorf("%s: 期望 enrollment_end <= valid_until", c.Name)
		}
	}
}

func TestFixtureService_Generate_NoFuturePresence(t *testing.T) {
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), nil)
	generate(t, svc, true)

	today := model.DateOf(fixedNow)
	// 上课日期不早于所在周的周一，所以周一 >= today 的记录必然尚未发生
	if n := countRows(t, db, &model.Attendance{}, "presence <> ? AND week_start >= ?", model.PresenceUnset, today); n != 0 {
		t.Errorf("今天及以后的出勤不应有状态，实际 %d 条", n)
	}
	if n := countRows(t, db, &model.Attendance{}, "presence NOT IN ?", []string{"", "PR", "UN", "EX"}); n != 0 {
		t.Errorf("存在非法出勤状态 %d 条", n)
	}
}

// ── complicate ──

func TestFixtureService_Generate_ComplicateRespectsCapacity(t *testing.T) {
	svc, _ := setupTestFixtureService(t, testutil.NewConfig(), nil)
	ctx := context.Background()

	result := generate(t, svc, true)

	if !result.Complicated {
		t.Error("期望 Complicated=true")
	}
	if result.Sections != result.JuniorMentors+int64(result.ExtraSections) {
		t.Errorf("期望讨论班数=%d+%d，实际=%d", result.JuniorMentors, result.ExtraSections, result.Sections)
	}

	sections, err := svc.repo.Section.List(ctx)
	if err != nil {
		t.Fatalf("查询讨论班失败: %v", err)
	}
	for _, sec := range sections {
		n, err := svc.repo.Profile.CountStudents(ctx, sec.SectionID)
		if err != nil {
			t.Fatalf("统计学生失败: %v", err)
		}
		if n > int64(sec.Capacity) {
			t.Errorf("讨论班 %s 学生数 %d 超过容量 %d", sec.SectionID, n, sec.Capacity)
		}
	}
}

func TestFixtureService_Generate_CrossEnrollmentUsesOtherCourse(t *testing.T) {
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), nil)
	result := generate(t, svc, true)

	// 跨课程选课复用 mentor 的用户，不新建用户
	profiles := result.Coordinators + result.SeniorMentors + result.JuniorMentors + result.Students
	if result.Users != profiles-int64(result.CrossEnrolled) {
		t.Errorf("期望用户数=%d-%d，实际=%d", profiles, result.CrossEnrolled, result.Users)
	}

	// mentor 不会在自己的课程里当学生
	var n int64
	err := db.Table("profiles AS s").
		Joins("JOIN profiles AS m ON m.user_id = s.user_id AND m.course_id = s.course_id").
		Where("s.role = ? AND m.role IN ?", model.RoleStudent, model.MentorRoles).
		Count(&n).Error
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if n != 0 {
		t.Errorf("存在 %d 个在本课程当学生的 mentor", n)
	}
}

func TestFixtureService_Generate_SingleCourseSkipsCrossEnrollment(t *testing.T) {
	cfg := testutil.NewConfig()
	cfg.Fixture.CourseNames = []string{"CS70"}
	svc, _ := setupTestFixtureService(t, cfg, nil)

	result := generate(t, svc, true)

	if result.CrossEnrolled != 0 {
		t.Errorf("只有一门课程时不应跨课程选课，实际=%d", result.CrossEnrolled)
	}
	if result.SkippedEnrolls == 0 {
		t.Error("期望记录被跳过的跨课程选课")
	}
}

// ── 重复运行 ──

func TestFixtureService_Generate_RerunReplacesData(t *testing.T) {
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), nil)
	ctx := context.Background()

	generate(t, svc, true)
	second := generate(t, svc, false)

	courses, err := svc.repo.Course.List(ctx)
	if err != nil {
		t.Fatalf("查询课程失败: %v", err)
	}
	names := make([]string, 0, len(courses))
	for _, c := range courses {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	want := []string{"CS61A", "CS70"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("期望课程 %v，实际 %v", want, names)
	}

	if second.Overrides != 0 {
		t.Errorf("重新生成后不应残留调课，实际=%d", second.Overrides)
	}
	if n := countRows(t, db, &model.Profile{}, "course_id NOT IN (?)", db.Model(&model.Course{}).Select("course_id")); n != 0 {
		t.Errorf("存在 %d 条残留 Profile", n)
	}
	if n := countRows(t, db, &model.Attendance{}, "section_id NOT IN (?)", db.Model(&model.Section{}).Select("section_id")); n != 0 {
		t.Errorf("存在 %d 条残留出勤", n)
	}
	if n := countRows(t, db, &model.Spacetime{}, ""); n != second.Sections {
		t.Errorf("未 complicate 时时空数应等于讨论班数 %d，实际=%d", second.Sections, n)
	}
}

func TestFixtureService_Generate_SameSeedSameData(t *testing.T) {
	usernames := func() []string {
		svc, db := setupTestFixtureService(t, testutil.NewConfig(), nil)
		generate(t, svc, false)
		var names []string
		db.Model(&model.User{}).Order("username").Pluck("username", &names)
		return names
	}

	a, b := usernames(), usernames()
	if len(a) != len(b) {
		t.Fatalf("相同种子应生成相同规模，实际 %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("相同种子应生成相同用户名，第 %d 个: %s != %s", i, a[i], b[i])
		}
	}
}

// ── 审计钩子 ──

func TestFixtureService_Generate_WithAuditHooks(t *testing.T) {
	cfg := testutil.NewConfig()
	svc, db := setupTestFixtureService(t, cfg, &fakeGuard{})
	core, logs := observer.New(zapcore.DebugLevel)
	if _, err := audit.Register(db, zap.New(core), audit.DefaultRules()); err != nil {
		t.Fatalf("注册审计回调失败: %v", err)
	}

	first := generate(t, svc, true)
	// 第二次运行会先清库，清库走 raw 会话
	second := generate(t, svc, true)
	if first.Users != second.Users || second.Users == 0 {
		t.Errorf("期望两次生成结果一致，实际 %d / %d", first.Users, second.Users)
	}

	if n := logs.FilterField(zap.String("event", string(audit.EventPreDelete))).Len(); n != 0 {
		t.Errorf("清库不应产生删除前快照，实际 %d 条", n)
	}

	wantLevels := map[string]zapcore.Level{
		"users":    zapcore.InfoLevel,
		"profiles": zapcore.InfoLevel,
		"courses":  zapcore.DebugLevel,
		"sections": zapcore.DebugLevel,
	}
	for table, level := range wantLevels {
		entries := logs.FilterField(zap.String("event", string(audit.EventPostSave))).
			FilterField(zap.String("table", table)).All()
		if len(entries) == 0 {
			t.Errorf("%s 期望有 post_save 日志", table)
			continue
		}
		for _, e := range entries {
			if e.Level != level {
				t.Errorf("%s 期望级别 %v，实际 %v", table, level, e.Level)
				break
			}
		}
	}

	pre := logs.FilterField(zap.String("event", string(audit.EventPreSave))).
		FilterField(zap.String("table", "attendances")).All()
	if len(pre) == 0 {
		t.Fatal("出勤写入期望有 pre_save 日志")
	}
	for _, e := range pre {
		if e.Level != zapcore.InfoLevel {
			t.Errorf("出勤 pre_save 期望 INFO，实际 %v", e.Level)
			break
		}
	}

	if n := logs.FilterField(zap.String("table", "spacetimes")).Len(); n != 0 {
		t.Errorf("spacetimes 无保存规则，不应有日志，实际 %d 条", n)
	}
}

// ── 请求参数 ──

func TestFixtureService_Generate_NilRequest(t *testing.T) {
	svc, db := setupTestFixtureService(t, testutil.NewConfig(), &fakeGuard{})

	result, err := svc.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("nil 请求应按默认参数执行: %v", err)
	}
	if result.Complicated {
		t.Error("nil 请求不应执行 complicate")
	}
	if n := countRows(t, db, &model.Course{}, ""); n != 2 {
		t.Errorf("期望 2 门课程，实际 %d", n)
	}
}
