package sqlinline

const QSelectStaleVideoJobs = `--sql 81f9b16a-01cb-44b3-b145-2dda8f48e9b1
select id, user_id, submitted_at
from video_jobs
where status = 'pending'
  and submitted_at < now() - make_interval(secs => $1::double precision)
order by submitted_at asc
limit $2::int;
`
