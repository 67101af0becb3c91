package errors

import "errors"

// ErrProductionGuard 非调试环境禁止执行破坏性的测试数据生成
var ErrProductionGuard = errors.New("This cannot be run in production! Aborting.")

// ErrGenerationLocked 另一个生成任务正在运行
var ErrGenerationLocked = errors.New("测试数据生成任务正在运行，请稍后重试")
