// Package ginx 提供 gin 框架的 handler 适配器，支持自动参数绑定和响应处理
//
// 请求参数依次从 JSON body、URI、Query 绑定；响应统一使用 JSON。
// 错误响应格式为 {"ok": false, "message": "..."}，状态码取自 apierror.Error。
//
// 支持的 handler 函数签名：
//
//	// 1. 有参数，有返回值，有 error
//	func(c *gin.Context, args *Args) (resp, error)
//
//	// 2. 有参数，只有返回值（返回值为 error 时按错误渲染）
//	func(c *gin.Context, args *Args) resp
//
//	// 3. 无参数，只有返回值
//	func(c *gin.Context) resp
//
// 使用示例：
//
//	router := gin.New()
//
//	router.POST("/zones/:id/hosts", ginx.Adapt6(func(c *gin.Context, args *AddHostArgs) *entity.Result {
//	    return svc.AddHost(c, token, args)
//	}))
//
//	router.GET("/healthz", ginx.Adapt2(func(c *gin.Context) string {
//	    return "ok"
//	}))
package ginx
