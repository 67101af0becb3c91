package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mudit2103/csm-web/config"
	"github.com/mudit2103/csm-web/internal/dto"
	"github.com/mudit2103/csm-web/internal/fixture"
	"github.com/mudit2103/csm-web/internal/model"
	"github.com/mudit2103/csm-web/internal/repository"
	pkgerrors "github.com/mudit2103/csm-web/pkg/errors"
)

// ── 测试数据模块业务错误 ──

var (
	ErrNoCourses = errors.New("未配置任何课程名称")
)

// 每门课程的组织规模
const (
	coordinatorsPerCourse = 2
	minSeniorMentors      = 4
	maxSeniorMentors      = 10
	minJuniorMentors      = 4
	maxJuniorMentors      = 6
)

// RunGuard 生成任务的跨进程互斥与运行记录（由 pkg/redis.Client 实现）
type RunGuard interface {
	AcquireRunLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, owner string) error
	RecordRun(ctx context.Context, fields map[string]interface{}) error
}

// FixtureService 测试数据生成业务接口
//
// 设计说明：
//   - Generate 是破坏性操作：清空全部调度数据后按课程重新生成
//   - 整个生成过程在一个事务内完成，任一步失败整体回滚
//   - 仅在 app.debug=true 且非 production 环境下允许运行
type FixtureService interface {
	// Generate 重置并生成测试数据
	Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResult, error)
	// Summary 统计当前数据规模
	Summary(ctx context.Context) (*dto.GenerateResult, error)
}

type fixtureService struct {
	cfg    *config.Config
	repo   *repository.Repository
	guard  RunGuard
	logger *zap.Logger
	now    func() time.Time
}

// NewFixtureService 创建 FixtureService 实例；guard 为 nil 时不加锁
func NewFixtureService(cfg *config.Config, repo *repository.Repository, guard RunGuard, logger *zap.Logger) FixtureService {
	return &fixtureService{
		cfg:    cfg,
		repo:   repo,
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Generate ──────────────────────

func (s *fixtureService) Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResult, error) {
	if req == nil {
		req = &dto.GenerateRequest{}
	}
	if !s.cfg.App.AllowsFixtures() {
		s.logger.Warn("生产环境拒绝生成测试数据",
			zap.String("env", s.cfg.App.Env), zap.Bool("debug", s.cfg.App.Debug))
		return nil, pkgerrors.ErrProductionGuard
	}

	names := s.cfg.Fixture.CourseNames
	if len(names) == 0 {
		return nil, ErrNoCourses
	}

	// 1. 抢占生成锁
	if s.guard != nil {
		owner := uuid.NewString()
		ok, err := s.guard.AcquireRunLock(ctx, owner, s.cfg.Fixture.LockTTL)
		if err != nil {
			s.logger.Error("获取生成锁失败", zap.Error(err))
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.ErrGenerationLocked
		}
		defer func() {
			if err := s.guard.ReleaseRunLock(context.Background(), owner); err != nil {
				s.logger.Warn("释放生成锁失败", zap.Error(err))
			}
		}()
	}

	started := s.now()

	// 2. 所有用户共用一个开发密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Fixture.DevPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	seed := s.cfg.Fixture.Seed
	if seed == 0 {
		seed = uint64(started.UnixNano())
	}
	today := model.DateOf(started.In(s.cfg.App.Location()))

	// 3. 事务内清库并重建
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	g := &generation{
		ctx:     ctx,
		repo:    s.repo.WithTx(tx),
		factory: fixture.New(seed, string(hash)),
		today:   today,
		logger:  s.logger,
	}
	if err := g.run(names, req.Complicate); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("生成测试数据失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	// 4. 汇总
	result, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	result.Seed = seed
	result.Complicated = req.Complicate
	result.Today = today.Format("2006-01-02")
	result.CrossEnrolled = g.crossEnrolled
	result.SkippedEnrolls = g.skippedEnrolls
	result.ExtraSections = g.extraSections
	result.DurationMillis = s.now().Sub(started).Milliseconds()

	if s.guard != nil {
		if err := s.guard.RecordRun(ctx, result.ToFields()); err != nil {
			s.logger.Warn("记录生成摘要失败", zap.Error(err))
		}
	}

	s.logger.Info("测试数据生成完成",
		zap.Uint64("seed", seed),
		zap.Bool("complicate", req.Complicate),
		zap.Int64("courses", result.Courses),
		zap.Int64("sections", result.Sections),
		zap.Int64("students", result.Students),
		zap.Int64("attendances", result.Attendances),
		zap.Int64("overrides", result.Overrides),
	)
	return result, nil
}

// ────────────────────── Summary ──────────────────────

func (s *fixtureService) Summary(ctx context.Context) (*dto.GenerateResult, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}
	users, err := s.repo.User.Count(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.Profile.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := s.repo.Section.Count(ctx)
	if err != nil {
		return nil, err
	}
	attendances, err := s.repo.Attendance.Count(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.Override.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.GenerateResult{
		Courses:       int64(len(courses)),
		Users:         users,
		Coordinators:  roles[model.RoleCoordinator],
		SeniorMentors: roles[model.RoleSeniorMentor],
		JuniorMentors: roles[model.RoleJuniorMentor],
		Students:      roles[model.RoleStudent],
		Sections:      sections,
		Attendances:   attendances,
		Overrides:     overrides,
	}, nil
}

// ═══════════════════════════════════════════════════════════
// generation — 单次生成的事务内状态
// ═══════════════════════════════════════════════════════════

type generation struct {
	ctx     context.Context
	repo    *repository.Repository
	factory *fixture.Factory
	today   time.Time
	logger  *zap.Logger

	courses        []model.Course
	crossEnrolled  int
	skippedEnrolls int
	extraSections  int
}

func (g *generation) run(names []string, complicate bool) error {
	if err := g.repo.Flush(g.ctx); err != nil {
		return fmt.Errorf("清空调度数据失败: %w", err)
	}

	for _, name := range names {
		if err := g.buildCourse(name); err != nil {
			return fmt.Errorf("生成课程 %s 失败: %w", name, err)
		}
	}

	if complicate {
		return g.complicate()
	}
	return nil
}

// buildCourse 课程 → 2 名 coordinator → 4~10 名 senior → 每名 senior 4~6 名 junior，
// 每名 junior 各带一个讨论班
func (g *generation) buildCourse(name string) error {
	course := g.factory.Course(name, g.today)
	if err := g.repo.Course.Create(g.ctx, &course); err != nil {
		return err
	}
	g.courses = append(g.courses, course)

	coordinators := make([]*model.Profile, 0, coordinatorsPerCourse)
	for i := 0; i < coordinatorsPerCourse; i++ {
		p, err := g.newMember(&course, model.RoleCoordinator, nil, nil)
		if err != nil {
			return err
		}
		coordinators = append(coordinators, p)
	}

	seniors := g.factory.Between(minSeniorMentors, maxSeniorMentors)
	for i := 0; i < seniors; i++ {
		leader := coordinators[g.factory.Pick(len(coordinators))]
		senior, err := g.newMember(&course, model.RoleSeniorMentor, &leader.ProfileID, nil)
		if err != nil {
			return err
		}

		juniors := g.factory.Between(minJuniorMentors, maxJuniorMentors)
		for j := 0; j < juniors; j++ {
			junior, err := g.newMember(&course, model.RoleJuniorMentor, &senior.ProfileID, nil)
			if err != nil {
				return err
			}
			if _, err := g.createSectionFor(&course, junior); err != nil {
				return err
			}
		}
	}
	return nil
}

// newMember 创建一个新用户及其在课程内的 Profile
func (g *generation) newMember(course *model.Course, role string, leaderID, sectionID *string) (*model.Profile, error) {
	user := g.factory.User()
	if err := g.repo.User.Create(g.ctx, &user); err != nil {
		return nil, err
	}
	p := &model.Profile{
		UserID:    user.UserID,
		CourseID:  course.CourseID,
		Role:      role,
		LeaderID:  leaderID,
		SectionID: sectionID,
	}
	if err := g.repo.Profile.Create(g.ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// createSectionFor 为 mentor 新建讨论班并招满 1~capacity 名学生，回填出勤
func (g *generation) createSectionFor(course *model.Course, mentor *model.Profile) (*model.Section, error) {
	st := g.factory.Spacetime()
	if err := g.repo.Spacetime.Create(g.ctx, &st); err != nil {
		return nil, err
	}

	section := &model.Section{
		CourseID:           course.CourseID,
		DefaultSpacetimeID: st.SpacetimeID,
		Capacity:           g.factory.Capacity(),
		MentorID:           mentor.ProfileID,
	}
	if err := g.repo.Section.Create(g.ctx, section); err != nil {
		return nil, err
	}

	students := g.factory.StudentCount(section.Capacity)
	for i := 0; i < students; i++ {
		student, err := g.newMember(course, model.RoleStudent, &mentor.ProfileID, &section.SectionID)
		if err != nil {
			return nil, err
		}
		if err := g.attend(course, &st, section.SectionID, student.ProfileID); err != nil {
			return nil, err
		}
	}
	return section, nil
}

func (g *generation) attend(course *model.Course, st *model.Spacetime, sectionID, attendeeID string) error {
	records, err := g.factory.Attendances(course, st, sectionID, attendeeID, g.today)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return g.repo.Attendance.BatchCreate(g.ctx, records)
}

// ────────────────────── complicate ──────────────────────

// complicate 在基础数据之上制造交叉情况：
// 约 25% 的 mentor 去其他课程当学生、约 25% 的 mentor 多带一个班、约 25% 的讨论班出现调课
func (g *generation) complicate() error {
	for i := range g.courses {
		course := &g.courses[i]
		mentors, err := g.repo.Profile.ListByCourseAndRoles(g.ctx, course.CourseID, model.MentorRoles)
		if err != nil {
			return err
		}

		for n := fixture.Quarter(len(mentors)); n > 0; n-- {
			mentor := &mentors[g.factory.Pick(len(mentors))]
			if err := g.crossEnroll(course, mentor); err != nil {
				return err
			}
		}

		for n := fixture.Quarter(len(mentors)); n > 0; n-- {
			mentor := &mentors[g.factory.Pick(len(mentors))]
			if _, err := g.createSectionFor(course, mentor); err != nil {
				return err
			}
			g.extraSections++
		}
	}

	sections, err := g.repo.Section.List(g.ctx)
	if err != nil {
		return err
	}
	for n := fixture.Quarter(len(sections)); n > 0; n-- {
		if err := g.addOverride(&sections[g.factory.Pick(len(sections))]); err != nil {
			return err
		}
	}
	return nil
}

// crossEnroll 让 mentor 以学生身份加入其他课程一个未满的讨论班；无可选讨论班时跳过
func (g *generation) crossEnroll(course *model.Course, mentor *model.Profile) error {
	candidates, err := g.repo.Section.ListUnderCapacityExcludingCourse(g.ctx, course.CourseID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		g.skippedEnrolls++
		g.logger.Warn("没有可加入的其他课程讨论班，跳过跨课程选课",
			zap.String("course", course.Name), zap.String("mentor_id", mentor.ProfileID))
		return nil
	}

	section := &candidates[g.factory.Pick(len(candidates))]
	enrolled, err := g.repo.Profile.CountStudents(g.ctx, section.SectionID)
	if err != nil {
		return err
	}
	if enrolled >= int64(section.Capacity) {
		g.skippedEnrolls++
		return nil
	}

	student := &model.Profile{
		UserID:    mentor.UserID,
		CourseID:  section.CourseID,
		Role:      model.RoleStudent,
		LeaderID:  &section.MentorID,
		SectionID: &section.SectionID,
	}
	if err := g.repo.Profile.Create(g.ctx, student); err != nil {
		return err
	}
	g.crossEnrolled++

	if section.Course == nil || section.DefaultSpacetime == nil {
		return nil
	}
	return g.attend(section.Course, section.DefaultSpacetime, section.SectionID, student.ProfileID)
}

// addOverride 为讨论班在有效期内随机一周安排一次调课；该周已有调课时跳过
func (g *generation) addOverride(section *model.Section) error {
	if section.Course == nil {
		return nil
	}
	week := g.factory.OverrideWeek(section.Course)
	exists, err := g.repo.Override.ExistsForWeek(g.ctx, section.SectionID, week)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	st := g.factory.Spacetime()
	if err := g.repo.Spacetime.Create(g.ctx, &st); err != nil {
		return err
	}
	return g.repo.Override.Create(g.ctx, &model.Override{
		SectionID:   section.SectionID,
		SpacetimeID: st.SpacetimeID,
		WeekStart:   week,
	})
}
