package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist or is
// soft-deleted.
var ErrNotFound = errors.New("record not found")

// DataRange enumerates the data-scope breadth a role grants.
type DataRange int

const (
	DataRangeSelf         DataRange = 0 // rows the user created
	DataRangeDeptAndBelow DataRange = 1 // user's department and all descendants
	DataRangeDept         DataRange = 2 // user's department only
	DataRangeAll          DataRange = 3 // no row restriction
	DataRangeCustom       DataRange = 4 // explicit department set on the role
)

// Valid reports whether r is a known data range value.
func (r DataRange) Valid() bool {
	return r >= DataRangeSelf && r <= DataRangeCustom
}

// Attribution carries the ownership columns present on every domain table.
// Creator and DeptBelongID drive data-scope filtering; rows with neither
// set are only visible under an unrestricted scope.
type Attribution struct {
	Creator      *int64    `json:"creator"`
	Modifier     string    `json:"modifier"`
	DeptBelongID *int64    `json:"dept_belong_id"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"create_datetime"`
	UpdatedAt    time.Time `json:"update_datetime"`
}

// Department is a node in the organizational forest. ParentID nil means a
// root. Status false excludes the department (and its subtree) from scope
// expansion.
type Department struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Key      string `json:"key"`
	Sort     int    `json:"sort"`
	Owner    string `json:"owner"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Status   bool   `json:"status"`
	ParentID *int64 `json:"parent"`
	Attribution
}

// User is an authenticated principal. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Password    string  `json:"-"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Mobile      string  `json:"mobile"`
	Avatar      string  `json:"avatar"`
	Gender      int     `json:"gender"`
	UserType    int     `json:"user_type"`
	IsSuperuser bool    `json:"is_superuser"`
	IsActive    bool    `json:"is_active"`
	DeptID      *int64  `json:"dept"`
	RoleIDs     []int64 `json:"role"`
	LastLoginAt *time.Time `json:"last_login"`
	Attribution
}

// Role bundles menu/button grants with a data range. Admin roles behave
// like DataRangeAll regardless of DataRange.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Sort      int       `json:"sort"`
	Status    bool      `json:"status"`
	Admin     bool      `json:"admin"`
	DataRange DataRange `json:"data_range"`
	Remark    string    `json:"remark"`

	// Grant sets, loaded on demand.
	MenuIDs       []int64 `json:"menu"`
	PermissionIDs []int64 `json:"permission"`
	DeptIDs       []int64 `json:"dept"`
	Attribution
}

// Menu is a node in the navigation tree.
type Menu struct {
	ID            int64  `json:"id"`
	ParentID      *int64 `json:"parent"`
	Icon          string `json:"icon"`
	Name          string `json:"name"`
	Sort          int    `json:"sort"`
	IsLink        bool   `json:"is_link"`
	IsCatalog     bool   `json:"is_catalog"`
	WebPath       string `json:"web_path"`
	Component     string `json:"component"`
	ComponentName string `json:"component_name"`
	Status        bool   `json:"status"`
	Visible       bool   `json:"visible"`
	Cache         bool   `json:"cache"`
	Attribution
}

// MenuButton is an action on a menu: Value is the permission code, API and
// Method describe the backend endpoint it authorizes.
type MenuButton struct {
	ID     int64  `json:"id"`
	MenuID int64  `json:"menu"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	API    string `json:"api"`
	Method string `json:"method"`
	Attribution
}

// WhitelistEntry exempts an endpoint from authentication. When
// EnableDatasource is false the gate additionally marks the request as
// scope-exempt.
type WhitelistEntry struct {
	ID               int64  `json:"id"`
	URL              string `json:"url"`
	Method           string `json:"method"`
	EnableDatasource bool   `json:"enable_datasource"`
	Attribution
}

// Dictionary is a labelled value in a flat two-level catalogue: rows with
// ParentID nil are dictionary groups, children are entries.
type Dictionary struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	ParentID *int64 `json:"parent"`
	Status   bool   `json:"status"`
	Sort     int    `json:"sort"`
	Color    string `json:"color"`
	Remark   string `json:"remark"`
	Attribution
}

// SystemConfig is a keyed configuration value grouped under a parent
// section row.
type SystemConfig struct {
	ID           int64  `json:"id"`
	ParentID     *int64 `json:"parent"`
	Title        string `json:"title"`
	Key          string `json:"key"`
	Value        string `json:"value"`
	Sort         int    `json:"sort"`
	Status       bool   `json:"status"`
	FormItemType int    `json:"form_item_type"`
	Attribution
}

// FileRecord tracks an uploaded file stored on local disk.
type FileRecord struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	MD5Sum string `json:"md5sum"`
	Size   int64  `json:"size"`
	Mime   string `json:"mime_type"`
	Attribution
}

// LoginLog records one authentication attempt, successful or not.
type LoginLog struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IP       string `json:"ip"`
	Agent    string `json:"agent"`
	Browser  string `json:"browser"`
	OS       string `json:"os"`
	Status   bool   `json:"status"`
	Attribution
}

// OperationLog records one mutating API request.
type OperationLog struct {
	ID             int64  `json:"id"`
	RequestModular string `json:"request_modular"`
	RequestPath    string `json:"request_path"`
	RequestBody    string `json:"request_body"`
	RequestMethod  string `json:"request_method"`
	RequestMsg     string `json:"request_msg"`
	RequestIP      string `json:"request_ip"`
	RequestBrowser string `json:"request_browser"`
	RequestOS      string `json:"request_os"`
	ResponseCode   int    `json:"response_code"`
	JSONResult     string `json:"json_result"`
	Status         bool   `json:"status"`
	Attribution
}
