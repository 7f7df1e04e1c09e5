package presence_sdk

import (
	_ "github.com/cydxin/presence-sdk/docs"
	"github.com/gin-gonic/gin"
	"github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterSwagger mounts the swagger UI, by default at /swagger/*any.
//
//	r := gin.Default()
//	presence_sdk.RegisterSwagger(r, "")
//
// then open http://localhost:8080/swagger/index.html
func RegisterSwagger(r *gin.Engine, path string) {
	if path == "" {
		path = "/swagger/*any"
	}
	r.GET(path, ginSwagger.WrapHandler(swaggerFiles.Handler))
}
