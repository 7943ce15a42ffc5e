package domain

// WoRMS 记录状态与分类阶元（只列出流程真正关心的取值）。
const (
	StatusAccepted    = "accepted"
	StatusNomenDubium = "nomen dubium"

	RankGenus = "Genus"
)

// Record 是 WoRMS 返回的 Aphia 记录（只保留流程与报告需要的字段）。
//
// 约束：
// - JSON tag 与 WoRMS REST 字段名一致，REST 响应可直接解码
// - null 字段解码为空串；ValidName/Phylum 为空即视为缺失
type Record struct {
	AphiaID        int    `json:"AphiaID"`
	URL            string `json:"url"`
	ScientificName string `json:"scientificname"`
	Authority      string `json:"authority"`
	Status         string `json:"status"`
	Rank           string `json:"rank"`
	ValidAphiaID   int    `json:"valid_AphiaID"`
	ValidName      string `json:"valid_name"`
	Kingdom        string `json:"kingdom"`
	Phylum         string `json:"phylum"`
	Class          string `json:"class"`
	Order          string `json:"order"`
	Family         string `json:"family"`
	Genus          string `json:"genus"`
	MatchType      string `json:"match_type"`
}

// IsAccepted 判断记录是否可以直接用于归类（accepted 或 nomen dubium）。
func (r Record) IsAccepted() bool {
	return r.Status == StatusAccepted || r.Status == StatusNomenDubium
}

// Redirect 返回同物异名应跳转到的有效名。
// valid_name 缺失或指向自身时返回 false（避免自引用）。
func (r Record) Redirect() (string, bool) {
	if r.ValidName == "" || r.ValidName == r.ScientificName {
		return "", false
	}
	return r.ValidName, true
}
