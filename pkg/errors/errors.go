package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 输入相关错误。
var (
	InputError     = Definition{Code: "INPUT_ERROR", Message: "Invalid input"}
	InvalidNumber  = Definition{Code: "INVALID_NUMBER", Message: "Invalid phone number"}
	FileTooLarge   = Definition{Code: "FILE_TOO_LARGE", Message: "Uploaded file too large"}
	TooManyNumbers = Definition{Code: "TOO_MANY_NUMBERS", Message: "Too many numbers in one submission"}
	Unauthorized   = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}

	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 额度相关错误。
var (
	InsufficientCredits = Definition{Code: "INSUFFICIENT_CREDITS", Message: "Insufficient credits"}
)

// 任务相关错误。
var (
	JobNotFound = Definition{Code: "JOB_NOT_FOUND", Message: "Job not found"}
)

// 账号池相关错误。
var (
	NoAvailableAccount = Definition{Code: "NO_AVAILABLE_ACCOUNT", Message: "No available account for platform"}
	AccountNotFound    = Definition{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found"}
	LoginFailed        = Definition{Code: "LOGIN_FAILED", Message: "Account login failed"}
)

// 校验供应商相关错误。
var (
	ProviderTimeout = Definition{Code: "PROVIDER_TIMEOUT", Message: "Provider call timed out"}
	ProviderError   = Definition{Code: "PROVIDER_ERROR", Message: "Provider call failed"}
	ProviderBanned  = Definition{Code: "PROVIDER_BANNED", Message: "Account banned by provider"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InputError.Code:          InputError,
	InvalidNumber.Code:       InvalidNumber,
	FileTooLarge.Code:        FileTooLarge,
	TooManyNumbers.Code:      TooManyNumbers,
	Unauthorized.Code:        Unauthorized,
	TooManyRequests.Code:     TooManyRequests,
	InsufficientCredits.Code: InsufficientCredits,
	JobNotFound.Code:         JobNotFound,
	NoAvailableAccount.Code:  NoAvailableAccount,
	AccountNotFound.Code:     AccountNotFound,
	LoginFailed.Code:         LoginFailed,
	ProviderTimeout.Code:     ProviderTimeout,
	ProviderError.Code:       ProviderError,
	ProviderBanned.Code:      ProviderBanned,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
