package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrExternalStore 外部存储读写在重试后仍失败
var ErrExternalStore = errors.New("外部存储访问失败")
