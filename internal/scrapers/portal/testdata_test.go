package portal

import (
	"fmt"
	"strings"
)

const loginPage = `<!DOCTYPE html>
<html>
<head><title>로그인</title></head>
<body>
<form id="loginForm" method="post" action="/login/process">
	<input type="hidden" name="csrf" value="token-123">
	<input type="hidden" name="returnUrl" value="/main">
	<input type="text" id="userId" name="userId">
	<input type="password" id="userPw" name="userPw">
	<button type="button" class="loginbtn1">로그인</button>
</form>
</body>
</html>`

const rejectedLoginPage = `<html><head><script type="text/javascript">
alert('아이디 또는 비밀번호가 일치하지 않습니다.');
history.back();
</script></head><body></body></html>`

type row struct {
	subject, grade, status string
}

func gradePage(rows ...row) string {
	var body strings.Builder
	for _, r := range rows {
		body.WriteString(fmt.Sprintf(
			`<tr>
				<td data-mb="년도">2025</td>
				<td data-mb="교과목">
					%s
				</td>
				<td data-mb="학점">3</td>
				<td data-mb="등급">%s</td>
				<td data-mb="성적입력">%s</td>
			</tr>`,
			r.subject, r.grade, r.status,
		))
	}
	return fmt.Sprintf(`<html><body>
<div id="cont1">
	<table class="t_list">
		<thead><tr><th>년도</th><th>교과목</th><th>학점</th><th>등급</th><th>성적입력</th></tr></thead>
		<tbody>
			<tr><td colspan="5">2025학년도 2학기</td></tr>
			%s
		</tbody>
	</table>
</div>
</body></html>`, body.String())
}
