package domain

// Settings contains user-selectable runtime configuration.
type Settings struct {
	BackendPath string `json:"backendPath"`
	MediaDir    string `json:"mediaDir"`
	ModelPath   string `json:"modelPath"`
	Language    string `json:"language"`
}
