// Package prompts holds the PRD prompt catalog. Every builder is a pure
// function of its arguments.
package prompts

// Template is a system/user prompt pair ready for ai.Service.Generate.
type Template struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Background drafts the background, goals and expected benefits for keywords.
func Background(keywords string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长撰写产品需求文档。请根据用户提供的关键词,生成结构化的需求背景、目标和预期收益。",
		User: "请根据以下关键词生成需求背景:\n" +
			"关键词: " + keywords + "\n" +
			`
请按以下格式输出:
**背景:**
[描述当前存在的问题和痛点]

**目标:**
[列出期望达成的目标,使用bullet points]

**预期收益:**
[列出预期带来的收益,使用bullet points]`,
	}
}

// UserStory drafts a user story and three usage scenarios.
func UserStory(role, action, benefit string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长编写用户故事和使用场景。",
		User: "请生成用户故事和使用场景:\n" +
			"用户角色: " + role + "\n" +
			"用户操作: " + action + "\n" +
			"期望收益: " + benefit + "\n" +
			`
请按以下格式输出:
**用户故事:**
[标准用户故事格式]

**使用场景:**
[列出3个典型使用场景]`,
	}
}

// FeatureDecompose splits a requirement into P0/P1/P2 feature points.
func FeatureDecompose(description string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长将高层需求拆解为详细的功能点,并按优先级分类。",
		User: "请将以下需求拆解为详细功能点,并按P0/P1/P2优先级分类:\n" +
			"需求描述: " + description + "\n" +
			`
请按以下格式输出:
**P0 (必须有):**
• [核心功能1]
• [核心功能2]

**P1 (重要):**
• [重要功能1]
• [重要功能2]

**P2 (优化项):**
• [优化功能1]
• [优化功能2]`,
	}
}

// InteractionFlow drafts page structure and interaction steps. An empty
// context asks for a generic flow.
func InteractionFlow(context string) Template {
	line := "请生成标准的交互流程说明"
	if context != "" {
		line = "功能背景: " + context
	}
	return Template{
		System: "你是一位专业的产品经理,擅长设计交互流程和页面结构。",
		User: "请生成交互流程说明:\n" +
			line + "\n" +
			`
请按以下格式输出:
**页面结构:**
[描述页面布局]

**交互流程:**
[列出详细的交互步骤]

**状态变化:**
[描述不同状态]

**异常处理:**
[列出异常场景的处理方式]`,
	}
}

// DataDict asks for a markdown data dictionary of fields.
func DataDict(fields string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长定义数据字段和数据结构。",
		User: "请为以下字段生成数据字典:\n" +
			"字段列表:\n" +
			fields + "\n" +
			`
请按以下格式输出Markdown表格:
| 字段名 | 类型 | 长度 | 必填 | 校验规则 | 说明 |
|--------|------|------|------|----------|------|
[为每个字段生成一行]`,
	}
}

// Exceptions lists file, data, system and permission failures for a scenario.
func Exceptions(scenario string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长识别和处理异常场景。",
		User: "请为以下功能场景生成异常处理说明:\n" +
			"功能场景: " + scenario + "\n" +
			`
请按以下分类输出:
**文件异常:**
[列出文件相关的异常]

**数据异常:**
[列出数据相关的异常]

**系统异常:**
[列出系统相关的异常]

**权限异常:**
[列出权限相关的异常]`,
	}
}

// Acceptance drafts functional, performance and experience acceptance criteria.
func Acceptance(features string) Template {
	return Template{
		System: "你是一位专业的产品经理,擅长制定验收标准和测试要点。",
		User: "请为以下功能列表生成验收标准:\n" +
			"功能列表:\n" +
			features + "\n" +
			`
请按以下格式输出:
**功能验收:**
[为每个功能生成验收标准]

**性能验收:**
[列出性能要求]

**体验验收:**
[列出用户体验验收标准]`,
	}
}
