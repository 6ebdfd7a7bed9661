package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile 可见性取值。
const (
	VisibilityPublic      = "public"
	VisibilityFriendsOnly = "friends_only"
	VisibilityPrivate     = "private"
)

// Friendship 状态取值。
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Project 展示类型取值。
const (
	ProjectTypeMain = "main"
	ProjectTypeToy  = "toy"
)

// User 表示账号及其公开档案信息。档案在注册时一并创建，仅本人可修改。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
	FullName     string `gorm:"size:128"`
	AvatarKey    string `gorm:"size:512"`
	Website      string `gorm:"size:512"`
	GithubURL    string `gorm:"size:512"`
	LinkedinURL  string `gorm:"size:512"`
	Visibility   string `gorm:"size:16;default:public"`

	Portfolio *Portfolio `gorm:"constraint:OnDelete:CASCADE"`
}

// Portfolio 是每个用户唯一的作品集容器，其余内容都挂在它下面。
// 首次保存时惰性创建。
type Portfolio struct {
	gorm.Model
	UserID uint           `gorm:"uniqueIndex"`
	Slug   string         `gorm:"uniqueIndex;size:64"`
	Title  string         `gorm:"size:255"`
	Bio    string         `gorm:"type:text"`
	Skills datatypes.JSON `gorm:"type:jsonb"` // 字符串数组
}

// Project 归属于唯一的 Portfolio，PortfolioID 创建后不再变更。
type Project struct {
	gorm.Model
	PortfolioID     uint           `gorm:"index"`
	Name            string         `gorm:"size:255"`
	Description     string         `gorm:"type:text"`
	URL             string         `gorm:"size:512"`
	ImageKey        string         `gorm:"size:512"`
	ProjectType     string         `gorm:"size:8;default:toy"`
	TechStack       datatypes.JSON `gorm:"type:jsonb"` // 字符串数组
	DisplayOrder    int            `gorm:"default:0"`
	LongDescription string         `gorm:"type:text"`
	Challenges      string         `gorm:"type:text"`
	Solutions       string         `gorm:"type:text"`
	Troubleshooting string         `gorm:"type:text"`
	Slug            string         `gorm:"size:64"`
}

// 以下五类简历条目共享 display_order 语义：同一 Portfolio 内 0..n-1 连续，
// 保存时由数组位置重新推导。日期列使用 *string（YYYY-MM-DD），
// 空字符串在入库前必须被清洗为 NULL。

// WorkExperience 工作经历。
type WorkExperience struct {
	gorm.Model
	PortfolioID  uint    `gorm:"index"`
	CompanyName  string  `gorm:"size:255"`
	Role         string  `gorm:"size:255"`
	StartDate    *string `gorm:"size:10"`
	EndDate      *string `gorm:"size:10"`
	IsCurrent    bool    `gorm:"default:false"`
	Description  *string `gorm:"type:text"`
	DisplayOrder int     `gorm:"default:0"`
}

// Education 教育经历。
type Education struct {
	gorm.Model
	PortfolioID  uint    `gorm:"index"`
	SchoolName   string  `gorm:"size:255"`
	Degree       *string `gorm:"size:128"`
	Major        *string `gorm:"size:128"`
	Status       *string `gorm:"size:32"` // 例如 毕业/在读/肄业
	StartDate    *string `gorm:"size:10"`
	EndDate      *string `gorm:"size:10"`
	IsCurrent    bool    `gorm:"default:false"`
	DisplayOrder int     `gorm:"default:0"`
}

// Award 获奖记录。
type Award struct {
	gorm.Model
	PortfolioID  uint    `gorm:"index"`
	Title        string  `gorm:"size:255"`
	Issuer       *string `gorm:"size:255"`
	Date         *string `gorm:"size:10"`
	Description  *string `gorm:"type:text"`
	DisplayOrder int     `gorm:"default:0"`
}

// Certification 资格证书。
type Certification struct {
	gorm.Model
	PortfolioID   uint    `gorm:"index"`
	Name          string  `gorm:"size:255"`
	Issuer        *string `gorm:"size:255"`
	Date          *string `gorm:"size:10"`
	CredentialURL *string `gorm:"size:512"`
	FileKey       *string `gorm:"size:512"`
	DisplayOrder  int     `gorm:"default:0"`
}

// LanguageCertification 语言成绩。
type LanguageCertification struct {
	gorm.Model
	PortfolioID  uint    `gorm:"index"`
	Language     string  `gorm:"size:64"`
	TestName     string  `gorm:"size:128"`
	Score        *string `gorm:"size:32"`
	Date         *string `gorm:"size:10"`
	FileKey      *string `gorm:"size:512"`
	DisplayOrder int     `gorm:"default:0"`
}

// Friendship 表示两个用户之间的好友关系边。
// 有方向（requester/receiver），accepted 之后对可见性判断是对称的。
type Friendship struct {
	gorm.Model
	RequesterID uint   `gorm:"index;uniqueIndex:idx_friendship_pair"`
	ReceiverID  uint   `gorm:"index;uniqueIndex:idx_friendship_pair"`
	Status      string `gorm:"size:16;default:pending"`
}

// Asset 记录用户上传到对象存储的文件，用于配额统计与清理。
type Asset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	ObjectKey string `gorm:"uniqueIndex;size:512"`
	Size      int64
}

// AllModels 返回需要 AutoMigrate 的全部模型。
func AllModels() []any {
	return []any{
		&User{},
		&Portfolio{},
		&Project{},
		&WorkExperience{},
		&Education{},
		&Award{},
		&Certification{},
		&LanguageCertification{},
		&Friendship{},
		&Asset{},
	}
}
