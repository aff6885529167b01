package errs

// 错误码定义
const (
	RecordNotFoundCode  = 1001 // 查询未命中
	ConditionFailedCode = 1002 // 事务前置条件不成立（重复注册/重复删除）
	DeliveryFailedCode  = 1003 // 推送到失效连接
	StorageFaultCode    = 1004 // 存储引擎错误
	InvalidInputCode    = 1005 // 请求体格式不合法
	UnimplementedCode   = 1006 // 预留接口未实现
	ServerInternalCode  = 1500
)

var (
	ErrRecordNotFound  = NewCodeError(RecordNotFoundCode, "record not found")
	ErrConditionFailed = NewCodeError(ConditionFailedCode, "condition failed")
	ErrDeliveryFailed  = NewCodeError(DeliveryFailedCode, "delivery failed")
	ErrStorageFault    = NewCodeError(StorageFaultCode, "storage fault")
	ErrInvalidInput    = NewCodeError(InvalidInputCode, "invalid input")
	ErrUnimplemented   = NewCodeError(UnimplementedCode, "not implemented")
	ErrServerInternal  = NewCodeError(ServerInternalCode, "server internal error")
)

// CodeOf 提取错误码；非 CodeError 一律按内部错误处理
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	codeErr := AsCodeError(err)
	if codeErr == nil {
		return ServerInternalCode
	}
	return codeErr.Code
}
