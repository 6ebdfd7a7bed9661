package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/database"
	"phFolio/internal/resume"
)

// ResumeHandler 负责简历分类的读取与整表同步保存。
// 每个分类一次提交完整有序列表：缺席的行删除，带 ID 的行更新，
// 无 ID 的行插入，display_order 由数组位置重新推导。
type ResumeHandler struct {
	db     *gorm.DB
	store  *resume.Store
	logger *slog.Logger
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, store *resume.Store, logger *slog.Logger) *ResumeHandler {
	return &ResumeHandler{db: db, store: store, logger: logger}
}

type workItemPayload struct {
	ID          uint    `json:"id"`
	CompanyName string  `json:"company_name"`
	Role        string  `json:"role"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	IsCurrent   bool    `json:"is_current"`
	Description *string `json:"description"`
}

type workItemResponse struct {
	workItemPayload
	DisplayOrder int `json:"display_order"`
}

type educationItemPayload struct {
	ID         uint    `json:"id"`
	SchoolName string  `json:"school_name"`
	Degree     *string `json:"degree"`
	Major      *string `json:"major"`
	Status     *string `json:"status"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	IsCurrent  bool    `json:"is_current"`
}

type educationItemResponse struct {
	educationItemPayload
	DisplayOrder int `json:"display_order"`
}

type awardItemPayload struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Issuer      *string `json:"issuer"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
}

type awardItemResponse struct {
	awardItemPayload
	DisplayOrder int `json:"display_order"`
}

type certificationItemPayload struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Issuer        *string `json:"issuer"`
	Date          *string `json:"date"`
	CredentialURL *string `json:"credential_url"`
	FileKey       *string `json:"file_key"`
}

type certificationItemResponse struct {
	certificationItemPayload
	DisplayOrder int `json:"display_order"`
}

type languageItemPayload struct {
	ID       uint    `json:"id"`
	Language string  `json:"language"`
	TestName string  `json:"test_name"`
	Score    *string `json:"score"`
	Date     *string `json:"date"`
	FileKey  *string `json:"file_key"`
}

type languageItemResponse struct {
	languageItemPayload
	DisplayOrder int `json:"display_order"`
}

type resumeItemsRequest[P any] struct {
	Items []P `json:"items"`
}

type resumeDataResponse struct {
	Work           []workItemResponse          `json:"work"`
	Education      []educationItemResponse     `json:"education"`
	Awards         []awardItemResponse         `json:"awards"`
	Certifications []certificationItemResponse `json:"certifications"`
	Languages      []languageItemResponse      `json:"languages"`
}

// GetResume 返回当前用户全部简历分类，各自按 display_order 升序。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var portfolio database.Portfolio
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Portfolio 尚未创建：返回全空分类而不是 404。
			c.JSON(http.StatusOK, newResumeDataResponse(emptyResumeData()))
			return
		}
		Internal(c, "failed to load portfolio")
		return
	}

	data, err := h.store.Load(ctx, portfolio.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("load resume data", slog.Any("error", err))
		Internal(c, "failed to load resume data")
		return
	}

	c.JSON(http.StatusOK, newResumeDataResponse(data))
}

// UpdateWork 以完整列表同步工作经历。
func (h *ResumeHandler) UpdateWork(c *gin.Context) {
	syncResumeCategory(c, h,
		func(p workItemPayload) *database.WorkExperience {
			return &database.WorkExperience{
				Model:       gorm.Model{ID: p.ID},
				CompanyName: p.CompanyName,
				Role:        p.Role,
				StartDate:   p.StartDate,
				EndDate:     p.EndDate,
				IsCurrent:   p.IsCurrent,
				Description: p.Description,
			}
		},
		h.store.SyncWork,
		func(data *resumeDataResponse) any { return data.Work },
	)
}

// UpdateEducation 以完整列表同步教育经历。
func (h *ResumeHandler) UpdateEducation(c *gin.Context) {
	syncResumeCategory(c, h,
		func(p educationItemPayload) *database.Education {
			return &database.Education{
				Model:      gorm.Model{ID: p.ID},
				SchoolName: p.SchoolName,
				Degree:     p.Degree,
				Major:      p.Major,
				Status:     p.Status,
				StartDate:  p.StartDate,
				EndDate:    p.EndDate,
				IsCurrent:  p.IsCurrent,
			}
		},
		h.store.SyncEducation,
		func(data *resumeDataResponse) any { return data.Education },
	)
}

// UpdateAwards 以完整列表同步获奖记录。
func (h *ResumeHandler) UpdateAwards(c *gin.Context) {
	syncResumeCategory(c, h,
		func(p awardItemPayload) *database.Award {
			return &database.Award{
				Model:       gorm.Model{ID: p.ID},
				Title:       p.Title,
				Issuer:      p.Issuer,
				Date:        p.Date,
				Description: p.Description,
			}
		},
		h.store.SyncAwards,
		func(data *resumeDataResponse) any { return data.Awards },
	)
}

// UpdateCertifications 以完整列表同步资格证书。
func (h *ResumeHandler) UpdateCertifications(c *gin.Context) {
	syncResumeCategory(c, h,
		func(p certificationItemPayload) *database.Certification {
			return &database.Certification{
				Model:         gorm.Model{ID: p.ID},
				Name:          p.Name,
				Issuer:        p.Issuer,
				Date:          p.Date,
				CredentialURL: p.CredentialURL,
				FileKey:       p.FileKey,
			}
		},
		h.store.SyncCertifications,
		func(data *resumeDataResponse) any { return data.Certifications },
	)
}

// UpdateLanguages 以完整列表同步语言成绩。
func (h *ResumeHandler) UpdateLanguages(c *gin.Context) {
	syncResumeCategory(c, h,
		func(p languageItemPayload) *database.LanguageCertification {
			return &database.LanguageCertification{
				Model:    gorm.Model{ID: p.ID},
				Language: p.Language,
				TestName: p.TestName,
				Score:    p.Score,
				Date:     p.Date,
				FileKey:  p.FileKey,
			}
		},
		h.store.SyncLanguages,
		func(data *resumeDataResponse) any { return data.Languages },
	)
}

// syncResumeCategory 是五个保存端点共用的骨架：
// 绑定 → 找到（必要时创建）Portfolio → 交给 Store 同步 → 回传该分类最新状态。
func syncResumeCategory[P any, M resume.Item](
	c *gin.Context,
	h *ResumeHandler,
	toModel func(P) M,
	sync func(ctx context.Context, userID, portfolioID uint, desired []M) error,
	pick func(*resumeDataResponse) any,
) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req resumeItemsRequest[P]
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	portfolio, err := getOrCreatePortfolio(ctx, h.db, userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("ensure portfolio", slog.Any("error", err))
		Internal(c, "failed to prepare portfolio")
		return
	}

	desired := make([]M, 0, len(req.Items))
	for _, payload := range req.Items {
		desired = append(desired, toModel(payload))
	}

	if err := sync(ctx, userID, portfolio.ID, desired); err != nil {
		switch {
		case errors.Is(err, resume.ErrNotOwner):
			Forbidden(c, "portfolio not owned by user")
		case errors.Is(err, resume.ErrDuplicateItem), errors.Is(err, resume.ErrUnknownItem):
			BadRequest(c, err.Error())
		default:
			middleware.LoggerFromContext(c).Error("sync resume items", slog.Any("error", err))
			Internal(c, err.Error())
		}
		return
	}

	data, err := h.store.Load(ctx, portfolio.ID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("reload resume data", slog.Any("error", err))
		Internal(c, "failed to reload resume data")
		return
	}

	resp := newResumeDataResponse(data)
	c.JSON(http.StatusOK, gin.H{"items": pick(&resp)})
}

func emptyResumeData() *resume.Data {
	return &resume.Data{
		Work:           []database.WorkExperience{},
		Education:      []database.Education{},
		Awards:         []database.Award{},
		Certifications: []database.Certification{},
		Languages:      []database.LanguageCertification{},
	}
}

func newResumeDataResponse(data *resume.Data) resumeDataResponse {
	resp := resumeDataResponse{
		Work:           make([]workItemResponse, 0, len(data.Work)),
		Education:      make([]educationItemResponse, 0, len(data.Education)),
		Awards:         make([]awardItemResponse, 0, len(data.Awards)),
		Certifications: make([]certificationItemResponse, 0, len(data.Certifications)),
		Languages:      make([]languageItemResponse, 0, len(data.Languages)),
	}

	for _, w := range data.Work {
		resp.Work = append(resp.Work, workItemResponse{
			workItemPayload: workItemPayload{
				ID:          w.ID,
				CompanyName: w.CompanyName,
				Role:        w.Role,
				StartDate:   w.StartDate,
				EndDate:     w.EndDate,
				IsCurrent:   w.IsCurrent,
				Description: w.Description,
			},
			DisplayOrder: w.DisplayOrder,
		})
	}
	for _, e := range data.Education {
		resp.Education = append(resp.Education, educationItemResponse{
			educationItemPayload: educationItemPayload{
				ID:         e.ID,
				SchoolName: e.SchoolName,
				Degree:     e.Degree,
				Major:      e.Major,
				Status:     e.Status,
				StartDate:  e.StartDate,
				EndDate:    e.EndDate,
				IsCurrent:  e.IsCurrent,
			},
			DisplayOrder: e.DisplayOrder,
		})
	}
	for _, a := range data.Awards {
		resp.Awards = append(resp.Awards, awardItemResponse{
			awardItemPayload: awardItemPayload{
				ID:          a.ID,
				Title:       a.Title,
				Issuer:      a.Issuer,
				Date:        a.Date,
				Description: a.Description,
			},
			DisplayOrder: a.DisplayOrder,
		})
	}
	for _, ct := range data.Certifications {
		resp.Certifications = append(resp.Certifications, certificationItemResponse{
			certificationItemPayload: certificationItemPayload{
				ID:            ct.ID,
				Name:          ct.Name,
				Issuer:        ct.Issuer,
				Date:          ct.Date,
				CredentialURL: ct.CredentialURL,
				FileKey:       ct.FileKey,
			},
			DisplayOrder: ct.DisplayOrder,
		})
	}
	for _, l := range data.Languages {
		resp.Languages = append(resp.Languages, languageItemResponse{
			languageItemPayload: languageItemPayload{
				ID:       l.ID,
				Language: l.Language,
				TestName: l.TestName,
				Score:    l.Score,
				Date:     l.Date,
				FileKey:  l.FileKey,
			},
			DisplayOrder: l.DisplayOrder,
		})
	}
	return resp
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
