package domain

// Genus 是一次批处理的输入主键（属名，批内唯一）。
// 大小写是否敏感由 WoRMS 决定；规范化在 genus.Extract 里完成。
type Genus string
