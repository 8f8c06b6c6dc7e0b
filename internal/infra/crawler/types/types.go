package types

// FrameInfo 页面上一个 iframe 的诊断信息, 缺失的属性为空字符串
type FrameInfo struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Src   string `json:"src"`
}
