package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/models"
)

func newTestStore(t *testing.T) (*ProjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	return NewProjectStore(fs), dir
}

func TestProjectStoreRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)

	project := &models.Project{
		ID:     "proj_1",
		Title:  "다이소 꿀템",
		Script: "오늘은 다이소 꿀템을 소개합니다.",
		Scenes: []models.Scene{{ID: "s1", Sequence: 1, Text: "hello.", Duration: 3, EndTime: 3}},
		Characters: []models.Character{
			models.DefaultNarrator(true),
		},
		Version:   2,
		UpdatedAt: time.Now(),
	}
	if err := store.Save(project); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "projects", "proj_1.json")); err != nil {
		t.Fatalf("项目文件不存在: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "projects", "proj_1.json.tmp")); !os.IsNotExist(err) {
		t.Error("临时文件应被改名")
	}

	loaded, err := store.Load("proj_1")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.Title != project.Title || len(loaded.Scenes) != 1 || loaded.Characters[0].ID != models.NarratorID || loaded.Version != 2 {
		t.Errorf("读取内容不一致: %+v", loaded)
	}
}

func TestProjectStoreNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	for _, id := range []string{"missing", "../etc/passwd"} {
		if _, err := store.Load(id); !apperrors.IsNotFoundError(err) {
			t.Errorf("Load(%q) 应返回未找到错误, got %v", id, err)
		}
	}
	if err := store.Delete("missing"); !apperrors.IsNotFoundError(err) {
		t.Errorf("删除不存在的项目应返回未找到错误, got %v", err)
	}
	if err := store.Save(&models.Project{ID: "a/b"}); !apperrors.IsValidationError(err) {
		t.Errorf("非法ID应返回验证错误, got %v", err)
	}
}

func TestProjectStoreListAndDelete(t *testing.T) {
	store, _ := newTestStore(t)

	if list, err := store.List(); err != nil || len(list) != 0 {
		t.Fatalf("空存储应返回空列表: %v %v", list, err)
	}

	base := time.Now()
	for i, id := range []string{"old", "new", "mid"} {
		updated := base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Minute)
		if err := store.Save(&models.Project{ID: id, Title: id, UpdatedAt: updated}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if len(list) != 3 || list[0].ID != "new" || list[1].ID != "mid" || list[2].ID != "old" {
		t.Errorf("列表顺序错误: %+v", list)
	}

	if err := store.Delete("mid"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if store.Exists("mid") {
		t.Error("删除后项目仍存在")
	}
	if _, err := store.Load("mid"); !apperrors.IsNotFoundError(err) {
		t.Errorf("删除后读取应返回未找到错误（缓存也应失效）, got %v", err)
	}
}
