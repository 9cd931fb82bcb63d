// internal/storage/project_store.go
package storage

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/models"
)

const (
	projectsDir   = "projects"
	projectSuffix = ".json"
)

var validProjectID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ProjectStore 将项目保存为 projects/<id>.json
type ProjectStore struct {
	fs *FileStorage
}

// NewProjectStore 创建项目存储
func NewProjectStore(fs *FileStorage) *ProjectStore {
	return &ProjectStore{fs: fs}
}

// Save 保存项目
func (s *ProjectStore) Save(project *models.Project) error {
	if !validProjectID.MatchString(project.ID) {
		return apperrors.NewValidationError(fmt.Sprintf("无效的项目ID: %q", project.ID), nil)
	}
	return s.fs.SaveJSONFile(projectsDir, project.ID+projectSuffix, project)
}

// Load 读取项目，不存在时返回 NotFound 错误
func (s *ProjectStore) Load(id string) (*models.Project, error) {
	if !validProjectID.MatchString(id) {
		return nil, apperrors.NewNotFoundError("项目不存在: "+id, nil)
	}

	var project models.Project
	if err := s.fs.LoadJSONFile(projectsDir, id+projectSuffix, &project); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("项目不存在: "+id, err)
		}
		return nil, apperrors.NewProcessingError("读取项目失败", err)
	}
	return &project, nil
}

// Exists 项目是否存在
func (s *ProjectStore) Exists(id string) bool {
	return validProjectID.MatchString(id) && s.fs.FileExists(projectsDir, id+projectSuffix)
}

// Delete 删除项目
func (s *ProjectStore) Delete(id string) error {
	if !s.Exists(id) {
		return apperrors.NewNotFoundError("项目不存在: "+id, nil)
	}
	return s.fs.DeleteFile(projectsDir, id+projectSuffix)
}

// List 返回所有项目摘要，最近更新的在前
func (s *ProjectStore) List() ([]models.ProjectSummary, error) {
	names, err := s.fs.ListFiles(projectsDir, projectSuffix)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ProjectSummary, 0, len(names))
	for _, name := range names {
		project, err := s.Load(strings.TrimSuffix(name, projectSuffix))
		if err != nil {
			// 损坏的文件跳过，不影响列表
			continue
		}
		summaries = append(summaries, project.Summary())
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}
