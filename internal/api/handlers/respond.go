package handlers

import (
	"errors"
	"net/http"

	"cart-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDHeader 前端以此標頭傳遞目前登入的使用者
const UserIDHeader = "X-User-ID"

// RequestID 取得 requestid 中間件產生的請求 ID；未掛載時自行產生
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	id := common.GenerateUUID()
	c.Header("X-Request-ID", id)
	return id
}

// RespondError 依錯誤類型回傳 {"error", "code"}；5xx 不回傳內部訊息
func RespondError(c *gin.Context, err error) {
	RespondErrorWith(c, err, nil)
}

// RespondErrorWith 同 RespondError，並把 extra 的欄位併入回應
func RespondErrorWith(c *gin.Context, err error, extra gin.H) {
	status, code := common.StatusOf(err)

	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}
	body["error"] = err.Error()
	body["code"] = code
	var ve *common.ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		body["details"] = ve.Fields
	}

	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("request_id", RequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		body["error"] = "Internal server error"
	}

	c.AbortWithStatusJSON(status, body)
}

// RespondBadRequest 請求格式錯誤
func RespondBadRequest(c *gin.Context, err error) {
	common.LogWarn("請求格式無效",
		zap.String("request_id", RequestID(c)),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": "Invalid request format",
		"code":  common.ErrCodeInvalidRequest,
	})
}
