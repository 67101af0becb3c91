package dto

// ── 测试数据生成 DTO ──

// GenerateRequest 生成请求
type GenerateRequest struct {
	Complicate bool `json:"complicate"`
}

// GenerateResult 生成结果摘要
type GenerateResult struct {
	Seed           uint64 `json:"seed"`
	Complicated    bool   `json:"complicated"`
	Today          string `json:"today"`
	Courses        int64  `json:"courses"`
	Users          int64  `json:"users"`
	Coordinators   int64  `json:"coordinators"`
	SeniorMentors  int64  `json:"senior_mentors"`
	JuniorMentors  int64  `json:"junior_mentors"`
	Students       int64  `json:"students"`
	Sections       int64  `json:"sections"`
	Attendances    int64  `json:"attendances"`
	Overrides      int64  `json:"overrides"`
	CrossEnrolled  int    `json:"cross_enrolled"`
	SkippedEnrolls int    `json:"skipped_enrolls"`
	ExtraSections  int    `json:"extra_sections"`
	DurationMillis int64  `json:"duration_ms"`
}

// ToFields 转为 Redis 哈希字段
func (r *GenerateResult) ToFields() map[string]interface{} {
	return map[string]interface{}{
		"seed":           r.Seed,
		"complicated":    r.Complicated,
		"today":          r.Today,
		"courses":        r.Courses,
		"users":          r.Users,
		"students":       r.Students,
		"sections":       r.Sections,
		"attendances":    r.Attendances,
		"overrides":      r.Overrides,
		"cross_enrolled": r.CrossEnrolled,
		"duration_ms":    r.DurationMillis,
	}
}

// RosterRow 名册导出中的一行（一个讨论班）
type RosterRow struct {
	Course    string
	Location  string
	DayOfWeek string
	StartTime string
	Duration  int
	Mentor    string
	Capacity  int
	Enrolled  int
	Students  []string
}
