package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed all:dist
var embedFS embed.FS

// assetsFS は dist/assets を配信するファイルシステムを返す
func assetsFS() (http.FileSystem, error) {
	sub, err := fs.Sub(embedFS, "dist/assets")
	if err != nil {
		return nil, fmt.Errorf("埋め込みアセットファイルシステムの作成に失敗: %w", err)
	}
	return http.FS(sub), nil
}

// indexHTML は画面のHTMLを返す
func indexHTML() ([]byte, error) {
	data, err := embedFS.ReadFile("dist/index.html")
	if err != nil {
		return nil, fmt.Errorf("埋め込みindex.htmlの読み込みに失敗: %w", err)
	}
	return data, nil
}
